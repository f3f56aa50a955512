package batch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/archive"
	"github.com/aliskhannn/lumina/internal/model"
	"github.com/aliskhannn/lumina/internal/preset"
	imgproc "github.com/aliskhannn/lumina/internal/processor"
	"github.com/aliskhannn/lumina/internal/straighten"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 10), uint8(y * 10), 120, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeProcessor records the adjustments it was called with.
type fakeProcessor struct {
	mu      sync.Mutex
	calls   []model.Adjustments
	srcs    []string
	fail    map[string]error
	panic   map[string]bool
	gate    chan struct{} // when set, Process blocks until it is closed
	entered chan string
}

func (f *fakeProcessor) Process(_ context.Context, src []byte, adj model.Adjustments) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, adj)
	f.srcs = append(f.srcs, string(src))
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- string(src)
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.panic[string(src)] {
		panic("boom")
	}
	if err := f.fail[string(src)]; err != nil {
		return nil, err
	}
	return []byte("out:" + string(src)), nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []model.ItemEvent
}

func (r *recorder) Notify(_ context.Context, ev model.ItemEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) statuses(name string) []model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Status
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestRunIsolatesUndecodableItem(t *testing.T) {
	r := NewRunner(imgproc.New(imgproc.DefaultJPEGQuality))
	r.Enqueue("a.png", pngBytes(t, 12, 8))
	r.Enqueue("b.png", []byte("not an image"))
	r.Enqueue("c.png", pngBytes(t, 8, 12))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Done: 2, Failed: 1}, summary)

	items := r.Items()
	require.Len(t, items, 3)
	assert.Equal(t, model.StatusDone, items[0].Status)
	assert.Equal(t, model.StatusError, items[1].Status)
	assert.NotEmpty(t, items[1].Error)
	assert.Nil(t, items[1].Output)
	assert.Equal(t, model.StatusDone, items[2].Status)

	var buf bytes.Buffer
	n, err := archive.Package(&buf, r.Completed(), archive.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunAppliesPolicy(t *testing.T) {
	fp := &fakeProcessor{}
	p := preset.AutoPortra()
	r := NewRunner(fp, WithPolicy(Policy{Preset: &p}))
	r.Enqueue("a", []byte("a"))
	r.Enqueue("b", []byte("b"))

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	want, err := preset.Merge(model.Neutral(), p.Values)
	require.NoError(t, err)
	require.Len(t, fp.calls, 2)
	assert.Equal(t, want, fp.calls[0])
	assert.Equal(t, want, fp.calls[1])
	assert.Equal(t, []string{"a", "b"}, fp.srcs)
}

func TestRunDrawsRotationPerItem(t *testing.T) {
	strategy, err := straighten.NewBoundedRandom(1, straighten.WithSource(rand.NewSource(7)))
	require.NoError(t, err)

	fp := &fakeProcessor{}
	r := NewRunner(fp, WithPolicy(Policy{Straighten: strategy}))
	for _, name := range []string{"a", "b", "c", "d"} {
		r.Enqueue(name, []byte(name))
	}

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	seen := map[float64]bool{}
	for i, adj := range fp.calls {
		assert.LessOrEqual(t, adj.Rotate, 1.0)
		assert.GreaterOrEqual(t, adj.Rotate, -1.0)
		assert.Equal(t, adj.Rotate, r.Items()[i].Rotate)
		seen[adj.Rotate] = true
	}
	assert.Greater(t, len(seen), 1, "rotation must not be shared across items")
}

func TestRunPublishesOrderedTransitions(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(&fakeProcessor{fail: map[string]error{"bad": errors.New("decode")}}, WithNotifier(rec))
	r.Enqueue("good", []byte("good"))
	r.Enqueue("bad", []byte("bad"))

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.Status{model.StatusProcessing, model.StatusDone}, rec.statuses("good"))
	assert.Equal(t, []model.Status{model.StatusProcessing, model.StatusError}, rec.statuses("bad"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 4)
	assert.Equal(t, 1, rec.events[0].Position)
	assert.Equal(t, 2, rec.events[2].Position)
}

func TestRunRecoversFromPanics(t *testing.T) {
	r := NewRunner(&fakeProcessor{panic: map[string]bool{"x": true}})
	r.Enqueue("x", []byte("x"))
	r.Enqueue("y", []byte("y"))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunSkipsTerminalItems(t *testing.T) {
	fp := &fakeProcessor{}
	r := NewRunner(fp)
	r.Enqueue("a", []byte("a"))

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	r.Enqueue("b", []byte("b"))
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, fp.srcs)
	assert.Equal(t, Summary{Total: 2, Done: 2}, summary)
}

func TestRemoveWhileProcessingDiscardsResult(t *testing.T) {
	fp := &fakeProcessor{gate: make(chan struct{}), entered: make(chan string, 4)}
	r := NewRunner(fp)
	first := r.Enqueue("a", []byte("a"))
	r.Enqueue("b", []byte("b"))

	done := make(chan Summary)
	go func() {
		s, _ := r.Run(context.Background())
		done <- s
	}()

	require.Equal(t, "a", <-fp.entered)
	item, err := r.Item(first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, item.Status)

	require.NoError(t, r.Remove(first.ID))
	assert.ErrorIs(t, r.Remove(first.ID), ErrItemNotFound)
	close(fp.gate)

	summary := <-done
	assert.Equal(t, Summary{Total: 1, Done: 1}, summary)

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Name)
	assert.Equal(t, 1, items[0].Position)
}

func TestRunRejectsConcurrentRunAndPolicyChange(t *testing.T) {
	fp := &fakeProcessor{gate: make(chan struct{}), entered: make(chan string, 1)}
	r := NewRunner(fp)
	r.Enqueue("a", []byte("a"))

	done := make(chan struct{})
	go func() {
		_, _ = r.Run(context.Background())
		close(done)
	}()
	<-fp.entered

	assert.True(t, r.Running())
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.ErrorIs(t, r.SetPolicy(Policy{}), ErrRunInProgress)

	close(fp.gate)
	<-done
	assert.False(t, r.Running())
	assert.NoError(t, r.SetPolicy(Policy{Straighten: straighten.FixedZero{}}))
}

func TestCancelStopsBetweenItems(t *testing.T) {
	fp := &fakeProcessor{gate: make(chan struct{}), entered: make(chan string, 4)}
	r := NewRunner(fp)
	r.Enqueue("a", []byte("a"))
	r.Enqueue("b", []byte("b"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Summary)
	go func() {
		s, _ := r.Run(ctx)
		done <- s
	}()

	<-fp.entered
	cancel()
	close(fp.gate)

	select {
	case summary := <-done:
		assert.True(t, summary.Abandoned)
		assert.Equal(t, 1, summary.Done)
		assert.Equal(t, 1, summary.Pending)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestClearAndRemove(t *testing.T) {
	r := NewRunner(&fakeProcessor{})
	a := r.Enqueue("a", nil)
	r.Enqueue("b", nil)
	r.Enqueue("c", nil)

	require.NoError(t, r.Remove(a.ID))
	items := r.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Position)
	assert.Equal(t, model.StatusPending, items[0].Status)

	r.Clear()
	assert.Empty(t, r.Items())
	assert.Equal(t, Summary{}, r.Summary())
}

func TestEmptyArtifactIsAnError(t *testing.T) {
	r := NewRunner(processFunc(func(context.Context, []byte, model.Adjustments) ([]byte, error) {
		return nil, nil
	}))
	r.Enqueue("a", []byte("a"))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, r.Items()[0].Error, imgproc.ErrEncodeFailure.Error())
}

type processFunc func(context.Context, []byte, model.Adjustments) ([]byte, error)

func (f processFunc) Process(ctx context.Context, src []byte, adj model.Adjustments) ([]byte, error) {
	return f(ctx, src, adj)
}
