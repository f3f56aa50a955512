package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	batchrun "github.com/aliskhannn/lumina/internal/batch"
	"github.com/aliskhannn/lumina/internal/model"
)

// service runs the batch queue.
type service interface {
	RunBatch(ctx context.Context) (batchrun.Summary, error)
}

// RunHandler handles batch run commands.
type RunHandler struct {
	service service
}

// NewRunHandler creates a new handler with the given service.
func NewRunHandler(s service) *RunHandler {
	return &RunHandler{service: s}
}

// Handle decodes a run command and processes the queue synchronously. A
// command arriving while a run is active is dropped: that run already
// covers every pending item.
func (h *RunHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.RunRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("unmarshal run request: %w", err)
	}

	summary, err := h.service.RunBatch(ctx)
	if err != nil {
		if errors.Is(err, batchrun.ErrRunInProgress) {
			zlog.Logger.Warn().Str("request_id", req.ID.String()).Msg("batch run already in progress, request dropped")
			return nil
		}
		return fmt.Errorf("run batch: %w", err)
	}

	zlog.Logger.Info().
		Str("request_id", req.ID.String()).
		Int("done", summary.Done).
		Int("failed", summary.Failed).
		Msg("batch run completed")

	return nil
}
