package access

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/pkg/response"
)

// ProgressRequest is the body for POST /webinars/:id/progress.
type ProgressRequest struct {
	Token           string `json:"token" binding:"required"`
	PositionSeconds int    `json:"position_seconds" binding:"min=0"`
}

// Handler handles access-state and progress HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an access handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// State handles GET /webinars/:id/access-state?token=...
func (h *Handler) State(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	res, err := h.service.State(c.Request.Context(), webinarID, c.Query("token"))
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			response.NotFound(c, "invalid token")
			return
		}
		h.logger.Error("access state failed", zap.Error(err))
		response.Internal(c, "failed to evaluate access state")
		return
	}
	response.OK(c, res)
}

// Progress handles POST /webinars/:id/progress.
func (h *Handler) Progress(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.service.RecordProgress(c.Request.Context(), webinarID, req.Token, req.PositionSeconds); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			response.NotFound(c, "invalid token")
			return
		}
		h.logger.Error("record progress failed", zap.Error(err))
		response.Internal(c, "failed to record progress")
		return
	}
	response.OK(c, gin.H{"recorded": true})
}
