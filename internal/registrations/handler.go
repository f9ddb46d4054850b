package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/pkg/response"
)

// RegisterRequest is the body for POST /webinars/:id/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	assigner *Assigner
	logger   *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(assigner *Assigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{assigner: assigner, logger: logger}
}

// Register handles POST /webinars/:id/register.
func (h *Handler) Register(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, sess, err := h.assigner.Register(c.Request.Context(), webinarID, req.Email, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, ErrWebinarNotFound):
			response.NotFound(c, "webinar not found")
		case errors.Is(err, ErrNoSession):
			response.Conflict(c, "no session available for this webinar")
		default:
			h.logger.Error("register failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
			response.Internal(c, "failed to register")
		}
		return
	}

	response.Created(c, gin.H{
		"registration_id":  reg.ID,
		"access_token":     reg.AccessToken,
		"session_id":       sess.ID,
		"scheduled_at":     sess.ScheduledAt,
		"duration_seconds": sess.DurationSeconds,
		"watch_url":        "/watch?webinar_id=" + webinarID.String() + "&token=" + reg.AccessToken,
	})
}
