package scheduler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/pkg/response"
)

// Handler handles the session generation trigger endpoint.
type Handler struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewHandler creates a scheduler handler.
func NewHandler(s *Scheduler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{scheduler: s, logger: logger}
}

// GenerateSessions handles POST /internal/generate-sessions. Idempotent:
// the external cron may call it with at-least-once semantics.
func (h *Handler) GenerateSessions(c *gin.Context) {
	batch, err := h.scheduler.EnsureAll(c.Request.Context())
	if err != nil {
		h.logger.Error("generate sessions batch failed", zap.Error(err))
		response.Internal(c, "session generation failed")
		return
	}
	h.logger.Info("sessions generated",
		zap.Int("processed", batch.Processed),
		zap.Int("created", batch.Created),
		zap.Int("errors", len(batch.Errors)))
	response.OK(c, batch)
}
