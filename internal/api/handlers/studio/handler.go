package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/api/respond"
	"github.com/aliskhannn/lumina/internal/model"
	"github.com/aliskhannn/lumina/internal/preset"
	"github.com/aliskhannn/lumina/internal/processor"
	studiosvc "github.com/aliskhannn/lumina/internal/service/studio"
	"github.com/aliskhannn/lumina/internal/session"
)

// service defines the interactive editing operations.
type service interface {
	Presets() []model.FilterPreset
	LoadImage(r io.Reader) (session.State, error)
	State() session.State
	UpdateAdjustments(values map[model.Field]float64) (session.State, error)
	Reset() session.State
	SelectPreset(id string, intensity *float64) (session.State, error)
	SetIntensity(intensity float64) (session.State, error)
	AutoEnhance() (session.State, error)
	AutoStraighten() (session.State, error)
	Preview() ([]byte, error)
	Export(ctx context.Context) (studiosvc.Artifact, error)
}

// Handler provides HTTP handlers for the interactive studio.
type Handler struct {
	service        service
	maxUploadBytes int64
}

// NewHandler creates a new Handler with the given service.
// Uploads larger than maxUploadBytes are rejected.
func NewHandler(s service, maxUploadBytes int64) *Handler {
	return &Handler{service: s, maxUploadBytes: maxUploadBytes}
}

// PresetRequest selects a preset, optionally at an intensity other than 100.
type PresetRequest struct {
	ID        string   `json:"id"`
	Intensity *float64 `json:"intensity"`
}

// IntensityRequest changes the intensity of the active preset.
type IntensityRequest struct {
	Intensity float64 `json:"intensity"`
}

// ListPresets returns the selectable presets.
func (h *Handler) ListPresets(c *ginext.Context) {
	respond.OK(c, h.service.Presets())
}

// UploadImage loads the multipart "image" file into the session.
func (h *Handler) UploadImage(c *ginext.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read uploaded image")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	zlog.Logger.Info().Str("filename", header.Filename).Int64("size", header.Size).Msg("image uploaded")

	st, err := h.service.LoadImage(file)
	if err != nil {
		fail(c, "failed to load the image", err)
		return
	}

	respond.Created(c, st)
}

// GetAdjustments returns the session state.
func (h *Handler) GetAdjustments(c *ginext.Context) {
	respond.OK(c, h.service.State())
}

// UpdateAdjustments sets the fields of a JSON object such as
// {"exposure": 20, "vignette": 35}.
func (h *Handler) UpdateAdjustments(c *ginext.Context) {
	var req map[model.Field]float64
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	st, err := h.service.UpdateAdjustments(req)
	if err != nil {
		fail(c, "failed to update adjustments", err)
		return
	}

	respond.OK(c, st)
}

// Reset restores neutral adjustments.
func (h *Handler) Reset(c *ginext.Context) {
	respond.OK(c, h.service.Reset())
}

// SelectPreset applies a preset by id.
func (h *Handler) SelectPreset(c *ginext.Context) {
	var req PresetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("preset id is required"))
		return
	}

	st, err := h.service.SelectPreset(req.ID, req.Intensity)
	if err != nil {
		fail(c, "failed to apply preset", err)
		return
	}

	respond.OK(c, st)
}

// SetIntensity re-blends the active preset.
func (h *Handler) SetIntensity(c *ginext.Context) {
	var req IntensityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	st, err := h.service.SetIntensity(req.Intensity)
	if err != nil {
		fail(c, "failed to set intensity", err)
		return
	}

	respond.OK(c, st)
}

// AutoEnhance applies the auto-portra look.
func (h *Handler) AutoEnhance(c *ginext.Context) {
	st, err := h.service.AutoEnhance()
	if err != nil {
		fail(c, "failed to auto enhance", err)
		return
	}
	respond.OK(c, st)
}

// AutoStraighten applies a small rotation.
func (h *Handler) AutoStraighten(c *ginext.Context) {
	st, err := h.service.AutoStraighten()
	if err != nil {
		fail(c, "failed to auto straighten", err)
		return
	}
	respond.OK(c, st)
}

// Preview serves the rendered session as PNG.
func (h *Handler) Preview(c *ginext.Context) {
	data, err := h.service.Preview()
	if err != nil {
		fail(c, "failed to render preview", err)
		return
	}
	respond.PNG(c, http.StatusOK, data)
}

// Export serves the rendered session as a PNG download. When the result
// was uploaded the object name is reported in X-Object-Name.
func (h *Handler) Export(c *ginext.Context) {
	a, err := h.service.Export(c.Request.Context())
	if err != nil {
		fail(c, "failed to export", err)
		return
	}

	if a.ObjectName != "" {
		c.Header("X-Object-Name", a.ObjectName)
	}
	respond.Attachment(c, a.Filename, a.ContentType, a.Data)
}

func fail(c *ginext.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zlog.Logger.Err(err).Msg(msg)
	} else {
		zlog.Logger.Warn().Err(err).Msg(msg)
	}
	respond.Fail(c, status, fmt.Errorf("%s: %v", msg, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrOutOfRange),
		errors.Is(err, model.ErrUnknownField),
		errors.Is(err, processor.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, preset.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoImage):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
