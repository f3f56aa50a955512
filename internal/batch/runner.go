// Package batch applies one adjustment policy to a queue of images, one item
// at a time, tracking each item's lifecycle and isolating failures.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/model"
	"github.com/aliskhannn/lumina/internal/preset"
	imgproc "github.com/aliskhannn/lumina/internal/processor"
	"github.com/aliskhannn/lumina/internal/straighten"
)

var (
	ErrItemNotFound  = errors.New("batch item not found")
	ErrRunInProgress = errors.New("batch run in progress")
)

// processor turns raw source bytes into an encoded output artifact.
type processor interface {
	Process(ctx context.Context, src []byte, adj model.Adjustments) ([]byte, error)
}

// notifier observes item status transitions.
type notifier interface {
	Notify(ctx context.Context, ev model.ItemEvent)
}

// Policy is applied uniformly to every item of a run.
type Policy struct {
	// Preset, when set, is merged over neutral at full intensity.
	Preset *model.FilterPreset
	// Straighten, when set, draws a rotation independently for every item.
	Straighten straighten.Strategy
}

func (p Policy) base() (model.Adjustments, error) {
	if p.Preset == nil {
		return model.Neutral(), nil
	}
	return preset.Merge(model.Neutral(), p.Preset.Values)
}

// Summary reports the terminal states after a run.
type Summary struct {
	Total     int  `json:"total"`
	Done      int  `json:"done"`
	Failed    int  `json:"failed"`
	Pending   int  `json:"pending"`
	Abandoned bool `json:"abandoned"`
}

type entry struct {
	item    model.BatchItem
	removed bool // set when deleted while a run still holds the entry
}

// Runner owns the batch queue. All methods are safe for concurrent use; at
// most one Run is active at a time.
type Runner struct {
	processor processor
	notifier  notifier
	now       func() time.Time

	mu      sync.Mutex
	entries []*entry
	policy  Policy
	running bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithNotifier publishes every status transition to n.
func WithNotifier(n notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithPolicy sets the initial policy.
func WithPolicy(p Policy) Option {
	return func(r *Runner) { r.policy = p }
}

// NewRunner creates an empty queue processed by p.
func NewRunner(p processor, opts ...Option) *Runner {
	r := &Runner{
		processor: p,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue appends a pending item holding src.
func (r *Runner) Enqueue(name string, src []byte) model.BatchItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{item: model.BatchItem{
		ID:        uuid.New(),
		Name:      name,
		Status:    model.StatusPending,
		Source:    src,
		CreatedAt: r.now(),
	}}
	r.entries = append(r.entries, e)

	return r.snapshotLocked(len(r.entries)-1, e)
}

// Remove deletes an item in any state. An item that is being processed is
// dropped from the queue at once and its result is discarded on completion.
func (r *Runner) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.item.ID == id {
			e.removed = true
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}

	return ErrItemNotFound
}

// Clear deletes every item.
func (r *Runner) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.removed = true
	}
	r.entries = nil
}

// Items returns a snapshot of the queue in enqueue order.
func (r *Runner) Items() []model.BatchItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.BatchItem, len(r.entries))
	for i, e := range r.entries {
		out[i] = r.snapshotLocked(i, e)
	}
	return out
}

// Item returns a snapshot of one item.
func (r *Runner) Item(id uuid.UUID) (model.BatchItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.item.ID == id {
			return r.snapshotLocked(i, e), nil
		}
	}
	return model.BatchItem{}, ErrItemNotFound
}

// Completed returns the done items, with their artifacts, in queue order.
func (r *Runner) Completed() []model.BatchItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.BatchItem
	for i, e := range r.entries {
		if e.item.Status == model.StatusDone {
			out = append(out, r.snapshotLocked(i, e))
		}
	}
	return out
}

// SetPolicy replaces the policy. It cannot change while a run is active.
func (r *Runner) SetPolicy(p Policy) error {
	if p.Preset != nil {
		if err := p.Preset.Values.Validate(); err != nil {
			return fmt.Errorf("policy preset %s: %w", p.Preset.ID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunInProgress
	}
	r.policy = p

	return nil
}

// Policy returns the current policy.
func (r *Runner) Policy() Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Summary counts the current queue by status.
func (r *Runner) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

// Run processes every pending item in enqueue order and returns once each
// of them is terminal. Done and error items are terminal and are not
// processed again. Items enqueued after the run started wait for the next
// run. Cancelling ctx stops the run between items; the item in flight always
// finishes.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Summary{}, ErrRunInProgress
	}

	base, err := r.policy.base()
	if err != nil {
		r.mu.Unlock()
		return Summary{}, fmt.Errorf("build policy: %w", err)
	}
	strategy := r.policy.Straighten
	queue := append([]*entry(nil), r.entries...)
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	zlog.Logger.Info().Int("items", len(queue)).Msg("batch run started")

	for _, e := range queue {
		if ctx.Err() != nil {
			break
		}
		r.processEntry(ctx, e, base, strategy)
	}

	r.mu.Lock()
	summary := r.summaryLocked()
	r.mu.Unlock()
	summary.Abandoned = ctx.Err() != nil

	zlog.Logger.Info().
		Int("done", summary.Done).
		Int("failed", summary.Failed).
		Int("pending", summary.Pending).
		Bool("abandoned", summary.Abandoned).
		Msg("batch run finished")

	return summary, nil
}

func (r *Runner) processEntry(ctx context.Context, e *entry, base model.Adjustments, strategy straighten.Strategy) {
	// The in-flight item and its events are not cut short by cancellation.
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	if e.removed || e.item.Status != model.StatusPending {
		r.mu.Unlock()
		return
	}
	adj := base
	if strategy != nil {
		adj.Rotate = strategy.Angle()
	}
	e.item.Status = model.StatusProcessing
	e.item.Rotate = adj.Rotate
	src := e.item.Source
	ev := r.eventLocked(e)
	r.mu.Unlock()

	r.notify(ctx, ev)

	out, err := r.process(ctx, src, adj)

	r.mu.Lock()
	if e.removed {
		r.mu.Unlock()
		zlog.Logger.Info().Str("item_id", e.item.ID.String()).Msg("item removed during processing, result discarded")
		return
	}
	if err != nil {
		e.item.Status = model.StatusError
		e.item.Error = err.Error()
		e.item.Output = nil
	} else {
		e.item.Status = model.StatusDone
		e.item.Output = out
	}
	ev = r.eventLocked(e)
	r.mu.Unlock()

	if err != nil {
		zlog.Logger.Err(err).Str("item_id", ev.ItemID.String()).Str("name", ev.Name).Msg("batch item failed")
	} else {
		zlog.Logger.Info().Str("item_id", ev.ItemID.String()).Str("name", ev.Name).Int("bytes", len(out)).Msg("batch item done")
	}

	r.notify(ctx, ev)
}

// process isolates one item: a panic inside decoding or rendering becomes
// that item's error.
func (r *Runner) process(ctx context.Context, src []byte, adj model.Adjustments) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("panic while processing: %v", p)
		}
	}()

	out, err = r.processor.Process(ctx, src, adj)
	if err == nil && len(out) == 0 {
		err = fmt.Errorf("%w: no artifact", imgproc.ErrEncodeFailure)
	}
	return out, err
}

func (r *Runner) notify(ctx context.Context, ev model.ItemEvent) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, ev)
	}
}

func (r *Runner) eventLocked(e *entry) model.ItemEvent {
	ev := model.ItemEvent{
		ItemID: e.item.ID,
		Name:   e.item.Name,
		Status: e.item.Status,
		Error:  e.item.Error,
		At:     r.now(),
	}
	for i, x := range r.entries {
		if x == e {
			ev.Position = i + 1
			break
		}
	}
	return ev
}

func (r *Runner) snapshotLocked(i int, e *entry) model.BatchItem {
	item := e.item
	item.Position = i + 1
	return item
}

func (r *Runner) summaryLocked() Summary {
	var s Summary
	for _, e := range r.entries {
		s.Total++
		switch e.item.Status {
		case model.StatusDone:
			s.Done++
		case model.StatusError:
			s.Failed++
		case model.StatusPending:
			s.Pending++
		}
	}
	return s
}
