package notifications

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/pkg/response"
)

// Handler handles the notification drain trigger endpoint.
type Handler struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(s *Scheduler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{scheduler: s, logger: logger}
}

// ProcessDue handles POST /internal/process-notifications.
func (h *Handler) ProcessDue(c *gin.Context) {
	stats, err := h.scheduler.ProcessDueJobs(c.Request.Context())
	if err != nil {
		h.logger.Error("notification drain failed", zap.Error(err))
		response.Internal(c, "notification processing failed")
		return
	}
	h.logger.Info("notifications processed",
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped))
	response.OK(c, stats)
}
