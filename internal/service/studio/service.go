// Package studio wires the interactive editing session and the batch queue
// to optional object storage and message transport.
package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/archive"
	"github.com/aliskhannn/lumina/internal/batch"
	"github.com/aliskhannn/lumina/internal/model"
	"github.com/aliskhannn/lumina/internal/preset"
	"github.com/aliskhannn/lumina/internal/processor"
	"github.com/aliskhannn/lumina/internal/session"
	"github.com/aliskhannn/lumina/internal/straighten"
)

// ErrStorageDisabled is returned when an upload is requested without object storage.
var ErrStorageDisabled = errors.New("object storage is not configured")

const (
	exportsDir  = "exports"
	archivesDir = "archives"

	contentTypePNG = "image/png"
	contentTypeZIP = "application/zip"
)

// fileStorage defines the interface for storing exported artifacts (e.g. MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename, contentType string, data []byte) (string, error)
}

// runRequester publishes batch run commands to a message broker (e.g. Kafka).
type runRequester interface {
	RequestRun(ctx context.Context, req model.RunRequest) error
}

// Options holds the service defaults.
type Options struct {
	ExportFilename string
	ArchiveName    string
	Archive        archive.Options
	// Straighten feeds the interactive auto-straighten action.
	Straighten straighten.Strategy
	// BatchStraighten is installed into the batch policy when enabled.
	BatchStraighten straighten.Strategy
	Retry           retry.Strategy
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithStorage uploads exports and archives to fs.
func WithStorage(fs fileStorage) Option {
	return func(s *Service) { s.storage = fs }
}

// WithRunRequester routes batch run requests through rr instead of running
// them in-process.
func WithRunRequester(rr runRequester) Option {
	return func(s *Service) { s.requester = rr }
}

// Upload is one file received for the batch queue.
type Upload struct {
	Name string
	Data []byte
}

// BatchPolicy is the user-facing view of the batch policy.
type BatchPolicy struct {
	ApplyPortra    bool `json:"apply_portra"`
	AutoStraighten bool `json:"auto_straighten"`
}

// Artifact is an encoded file ready to be served.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// ObjectName is the storage location when the artifact was uploaded.
	ObjectName string
	Files      int
}

// Service provides business logic for the studio.
type Service struct {
	session   *session.Session
	runner    *batch.Runner
	storage   fileStorage
	requester runRequester
	opts      Options

	mu     sync.Mutex
	policy BatchPolicy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a Service and installs the initial batch policy.
func NewService(sess *session.Session, runner *batch.Runner, policy BatchPolicy, opts Options, options ...Option) (*Service, error) {
	if opts.Straighten == nil {
		opts.Straighten = straighten.FixedZero{}
	}
	if opts.BatchStraighten == nil {
		opts.BatchStraighten = straighten.FixedZero{}
	}
	if opts.ExportFilename == "" {
		opts.ExportFilename = "lumina-edit.png"
	}
	if opts.ArchiveName == "" {
		opts.ArchiveName = archive.DefaultName
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		session: sess,
		runner:  runner,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range options {
		o(s)
	}

	if err := s.SetBatchPolicy(policy); err != nil {
		cancel()
		return nil, err
	}

	return s, nil
}

// Presets returns the selectable presets.
func (s *Service) Presets() []model.FilterPreset {
	return preset.Catalog()
}

// LoadImage decodes r and starts a fresh session on it.
func (s *Service) LoadImage(r io.Reader) (session.State, error) {
	img, err := processor.Decode(r)
	if err != nil {
		return session.State{}, err
	}
	if err := s.session.Load(img); err != nil {
		return session.State{}, err
	}

	st := s.session.State()
	zlog.Logger.Info().Int("width", st.Width).Int("height", st.Height).Msg("image loaded")

	return st, nil
}

// State returns the session snapshot.
func (s *Service) State() session.State {
	return s.session.State()
}

// UpdateAdjustments sets every given field. Nothing changes unless all
// values are in range.
func (s *Service) UpdateAdjustments(values map[model.Field]float64) (session.State, error) {
	for f, v := range values {
		if err := model.ValidateField(f, v); err != nil {
			return session.State{}, err
		}
	}
	for f, v := range values {
		if err := s.session.Set(f, v); err != nil {
			return session.State{}, err
		}
	}
	return s.session.State(), nil
}

// Reset restores neutral adjustments.
func (s *Service) Reset() session.State {
	s.session.Reset()
	return s.session.State()
}

// SelectPreset applies the preset with id, optionally at an intensity.
func (s *Service) SelectPreset(id string, intensity *float64) (session.State, error) {
	if intensity != nil {
		if _, err := preset.Blend(model.Neutral(), nil, *intensity); err != nil {
			return session.State{}, err
		}
	}

	p, err := preset.ByID(id)
	if err != nil {
		return session.State{}, err
	}
	if err := s.session.ApplyPreset(p); err != nil {
		return session.State{}, err
	}
	if intensity != nil {
		if err := s.session.SetIntensity(*intensity); err != nil {
			return session.State{}, err
		}
	}

	return s.session.State(), nil
}

// SetIntensity re-blends the active preset.
func (s *Service) SetIntensity(intensity float64) (session.State, error) {
	if err := s.session.SetIntensity(intensity); err != nil {
		return session.State{}, err
	}
	return s.session.State(), nil
}

// AutoEnhance applies the auto-portra look at full intensity.
func (s *Service) AutoEnhance() (session.State, error) {
	if err := s.session.ApplyPreset(preset.AutoPortra()); err != nil {
		return session.State{}, err
	}
	return s.session.State(), nil
}

// AutoStraighten draws a rotation from the interactive strategy.
func (s *Service) AutoStraighten() (session.State, error) {
	angle, err := s.session.AutoStraighten(s.opts.Straighten)
	if err != nil {
		return session.State{}, err
	}

	zlog.Logger.Info().Float64("angle", angle).Msg("auto straighten applied")

	return s.session.State(), nil
}

// Preview renders the session as PNG.
func (s *Service) Preview() ([]byte, error) {
	return s.session.Export()
}

// Export renders the session as PNG under the export filename and uploads
// it when storage is configured.
func (s *Service) Export(ctx context.Context) (Artifact, error) {
	data, err := s.session.Export()
	if err != nil {
		return Artifact{}, err
	}

	a := Artifact{
		Filename:    s.opts.ExportFilename,
		ContentType: contentTypePNG,
		Data:        data,
		Files:       1,
	}

	if s.storage != nil {
		dst, err := s.upload(ctx, exportsDir, a)
		if err != nil {
			return Artifact{}, err
		}
		a.ObjectName = dst
	}

	return a, nil
}

// AddBatchItems enqueues every upload as pending.
func (s *Service) AddBatchItems(files []Upload) []model.BatchItem {
	items := make([]model.BatchItem, 0, len(files))
	for _, f := range files {
		items = append(items, s.runner.Enqueue(f.Name, f.Data))
	}
	return items
}

// BatchItems returns the queue in order.
func (s *Service) BatchItems() []model.BatchItem {
	return s.runner.Items()
}

// BatchItem returns the queue entry with id.
func (s *Service) BatchItem(id uuid.UUID) (model.BatchItem, error) {
	return s.runner.Item(id)
}

// RemoveBatchItem deletes one item from the queue.
func (s *Service) RemoveBatchItem(id uuid.UUID) error {
	return s.runner.Remove(id)
}

// ClearBatch empties the queue.
func (s *Service) ClearBatch() {
	s.runner.Clear()
}

// BatchSummary counts the queue by status.
func (s *Service) BatchSummary() batch.Summary {
	return s.runner.Summary()
}

// BatchPolicy returns the current batch toggles.
func (s *Service) BatchPolicy() BatchPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// SetBatchPolicy replaces the batch toggles. It fails while a run is active.
func (s *Service) SetBatchPolicy(p BatchPolicy) error {
	var policy batch.Policy
	if p.ApplyPortra {
		portra := preset.AutoPortra()
		policy.Preset = &portra
	}
	if p.AutoStraighten {
		policy.Straighten = s.opts.BatchStraighten
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.runner.SetPolicy(policy); err != nil {
		return err
	}
	s.policy = p

	return nil
}

// RequestBatchRun starts processing the queue. With a run requester the
// command is published and a consumer performs the run; otherwise the run
// starts in the background on this process.
func (s *Service) RequestBatchRun(ctx context.Context) (model.RunRequest, error) {
	if s.runner.Running() {
		return model.RunRequest{}, batch.ErrRunInProgress
	}

	req := model.RunRequest{ID: uuid.New(), RequestedAt: time.Now().UTC()}

	if s.requester != nil {
		if err := s.requester.RequestRun(ctx, req); err != nil {
			return model.RunRequest{}, fmt.Errorf("request batch run: %w", err)
		}
		return req, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunBatch(s.ctx); err != nil && !errors.Is(err, batch.ErrRunInProgress) {
			zlog.Logger.Err(err).Str("request_id", req.ID.String()).Msg("batch run failed")
		}
	}()

	return req, nil
}

// RunBatch processes the queue synchronously.
func (s *Service) RunBatch(ctx context.Context) (batch.Summary, error) {
	return s.runner.Run(ctx)
}

// BatchArchive packages every done item into a ZIP and uploads it when
// storage is configured.
func (s *Service) BatchArchive(ctx context.Context) (Artifact, error) {
	var buf bytes.Buffer
	n, err := archive.Package(&buf, s.runner.Completed(), s.opts.Archive)
	if err != nil {
		return Artifact{}, fmt.Errorf("package archive: %w", err)
	}

	a := Artifact{
		Filename:    s.opts.ArchiveName,
		ContentType: contentTypeZIP,
		Data:        buf.Bytes(),
		Files:       n,
	}

	if s.storage != nil {
		dst, err := s.upload(ctx, archivesDir, a)
		if err != nil {
			return Artifact{}, err
		}
		a.ObjectName = dst
	}

	return a, nil
}

// Close stops a local batch run between items and waits for it.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) upload(ctx context.Context, dir string, a Artifact) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}

	subdir := dir + "/" + uuid.NewString()

	var dst string
	err := retry.Do(func() error {
		var saveErr error
		dst, saveErr = s.storage.Save(ctx, subdir, a.Filename, a.ContentType, a.Data)
		return saveErr
	}, s.opts.Retry)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", a.Filename, err)
	}

	zlog.Logger.Info().Str("object", dst).Int("bytes", len(a.Data)).Msg("artifact uploaded")

	return dst, nil
}
