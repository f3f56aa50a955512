// Package session holds the state of one interactive editing session: the
// loaded image, the live adjustments and the active preset with its
// intensity.
package session

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/aliskhannn/lumina/internal/model"
	"github.com/aliskhannn/lumina/internal/preset"
	"github.com/aliskhannn/lumina/internal/processor"
	"github.com/aliskhannn/lumina/internal/straighten"
)

// ErrNoImage is returned by operations that need a loaded image.
var ErrNoImage = errors.New("no image loaded")

// State is a snapshot of the session.
type State struct {
	Adjustments model.Adjustments `json:"adjustments"`
	PresetID    string            `json:"preset_id"`
	Intensity   float64           `json:"intensity"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	HasImage    bool              `json:"has_image"`
}

// Session is safe for concurrent use. Adjustments are always returned and
// accepted by value.
type Session struct {
	mu        sync.RWMutex
	source    image.Image
	adj       model.Adjustments
	presetID  string
	target    model.Overrides
	intensity float64
}

// New returns an empty session with neutral adjustments.
func New() *Session {
	s := &Session{}
	s.resetLocked()
	return s
}

// Load installs img as the session source and resets every edit.
func (s *Session) Load(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("load: %w", processor.ErrInvalidImage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = img
	s.resetLocked()

	return nil
}

// Reset returns to neutral adjustments and the "none" preset.
func (s *Session) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

func (s *Session) resetLocked() {
	s.adj = model.Neutral()
	s.presetID = preset.NoneID
	s.target = nil
	s.intensity = preset.IntensityRange.Max
}

// Set changes one field. The active preset and intensity are kept so that
// a later intensity change recomputes from neutral again.
func (s *Session) Set(field model.Field, value float64) error {
	if err := model.ValidateField(field, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.adj.Set(field, value)
	s.mu.Unlock()

	return nil
}

// ApplyPreset switches to p at full intensity.
func (s *Session) ApplyPreset(p model.FilterPreset) error {
	adj, err := preset.Merge(model.Neutral(), p.Values)
	if err != nil {
		return fmt.Errorf("apply preset %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.adj = adj
	s.presetID = p.ID
	s.target = p.Values.Clone()
	s.intensity = preset.IntensityRange.Max

	return nil
}

// SetIntensity re-blends the active preset from neutral. With no active
// preset only the intensity is recorded.
func (s *Session) SetIntensity(intensity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presetID == preset.NoneID {
		if _, err := preset.Blend(model.Neutral(), nil, intensity); err != nil {
			return err
		}
		s.intensity = intensity
		return nil
	}

	adj, err := preset.Blend(model.Neutral(), s.target, intensity)
	if err != nil {
		return err
	}
	s.adj = adj
	s.intensity = intensity

	return nil
}

// AutoStraighten sets the rotation from strategy and returns it.
func (s *Session) AutoStraighten(strategy straighten.Strategy) (float64, error) {
	angle := strategy.Angle()
	if err := model.ValidateField(model.Rotate, angle); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.adj.Rotate = angle
	s.mu.Unlock()

	return angle, nil
}

// Adjustments returns a copy of the live adjustments.
func (s *Session) Adjustments() model.Adjustments {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adj
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Adjustments: s.adj,
		PresetID:    s.presetID,
		Intensity:   s.intensity,
		HasImage:    s.source != nil,
	}
	if s.source != nil {
		st.Width = s.source.Bounds().Dx()
		st.Height = s.source.Bounds().Dy()
	}

	return st
}

// Render runs the pipeline on the loaded image with the live adjustments.
func (s *Session) Render() (*image.NRGBA, error) {
	s.mu.RLock()
	src, adj := s.source, s.adj
	s.mu.RUnlock()

	if src == nil {
		return nil, ErrNoImage
	}

	return processor.Render(src, adj)
}

// Export renders and returns the PNG encoding.
func (s *Session) Export() ([]byte, error) {
	img, err := s.Render()
	if err != nil {
		return nil, err
	}
	return processor.EncodePNG(img)
}
