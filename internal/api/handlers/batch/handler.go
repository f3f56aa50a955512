package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/api/respond"
	batchrun "github.com/aliskhannn/lumina/internal/batch"
	"github.com/aliskhannn/lumina/internal/model"
	studiosvc "github.com/aliskhannn/lumina/internal/service/studio"
)

// service defines the batch queue operations.
type service interface {
	AddBatchItems(files []studiosvc.Upload) []model.BatchItem
	BatchItems() []model.BatchItem
	BatchItem(id uuid.UUID) (model.BatchItem, error)
	RemoveBatchItem(id uuid.UUID) error
	ClearBatch()
	BatchSummary() batchrun.Summary
	BatchPolicy() studiosvc.BatchPolicy
	SetBatchPolicy(p studiosvc.BatchPolicy) error
	RequestBatchRun(ctx context.Context) (model.RunRequest, error)
	BatchArchive(ctx context.Context) (studiosvc.Artifact, error)
}

// Handler provides HTTP handlers for the batch studio.
type Handler struct {
	service        service
	maxUploadBytes int64
}

// NewHandler creates a new Handler with the given service.
// Multipart bodies larger than maxUploadBytes are rejected.
func NewHandler(s service, maxUploadBytes int64) *Handler {
	return &Handler{service: s, maxUploadBytes: maxUploadBytes}
}

// AddItems enqueues every multipart "images" file.
func (h *Handler) AddItems(c *ginext.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	headers := c.Request.MultipartForm.File["images"]
	if len(headers) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("images field is required"))
		return
	}

	uploads := make([]studiosvc.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			zlog.Logger.Err(err).Str("filename", fh.Filename).Msg("failed to open uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			zlog.Logger.Err(err).Str("filename", fh.Filename).Msg("failed to read uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read %s", fh.Filename))
			return
		}
		uploads = append(uploads, studiosvc.Upload{Name: fh.Filename, Data: data})
	}

	items := h.service.AddBatchItems(uploads)
	zlog.Logger.Info().Int("count", len(items)).Msg("batch items added")

	respond.Created(c, items)
}

// ListItems returns the queue with a status summary.
func (h *Handler) ListItems(c *ginext.Context) {
	respond.OK(c, map[string]interface{}{
		"items":   h.service.BatchItems(),
		"summary": h.service.BatchSummary(),
	})
}

// GetItem returns one queue entry.
func (h *Handler) GetItem(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.service.BatchItem(id)
	if err != nil {
		fail(c, "failed to get item", err)
		return
	}

	respond.OK(c, item)
}

// RemoveItem deletes one queue entry.
func (h *Handler) RemoveItem(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveBatchItem(id); err != nil {
		fail(c, "failed to remove item", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearItems empties the queue.
func (h *Handler) ClearItems(c *ginext.Context) {
	h.service.ClearBatch()
	c.Status(http.StatusNoContent)
}

// GetPolicy returns the batch toggles.
func (h *Handler) GetPolicy(c *ginext.Context) {
	respond.OK(c, h.service.BatchPolicy())
}

// SetPolicy replaces the batch toggles.
func (h *Handler) SetPolicy(c *ginext.Context) {
	var req studiosvc.BatchPolicy
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	if err := h.service.SetBatchPolicy(req); err != nil {
		fail(c, "failed to set policy", err)
		return
	}

	respond.OK(c, h.service.BatchPolicy())
}

// Run starts processing the queue and returns immediately.
func (h *Handler) Run(c *ginext.Context) {
	req, err := h.service.RequestBatchRun(c.Request.Context())
	if err != nil {
		fail(c, "failed to start batch run", err)
		return
	}

	respond.Accepted(c, req)
}

// Archive serves every finished item as a ZIP download.
func (h *Handler) Archive(c *ginext.Context) {
	a, err := h.service.BatchArchive(c.Request.Context())
	if err != nil {
		fail(c, "failed to build archive", err)
		return
	}

	if a.ObjectName != "" {
		c.Header("X-Object-Name", a.ObjectName)
	}
	respond.Attachment(c, a.Filename, a.ContentType, a.Data)
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}
	return id, true
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
	case errors.Is(err, batchrun.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, batchrun.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
