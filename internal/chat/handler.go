package chat

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/access"
	"github.com/evergreenlive/backend/pkg/response"
)

// Handler handles the chat window HTTP endpoint.
type Handler struct {
	feed   *Feed
	access *access.Service
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(feed *Feed, accessSvc *access.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{feed: feed, access: accessSvc, logger: logger}
}

// Window handles GET /webinars/:id/chat?token=...&from=...&to=...
func (h *Handler) Window(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil {
		response.BadRequest(c, "invalid from offset")
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		response.BadRequest(c, "invalid to offset")
		return
	}

	reg, sess, err := h.access.Authorize(c.Request.Context(), webinarID, c.Query("token"))
	if err != nil {
		if errors.Is(err, access.ErrInvalidToken) {
			response.NotFound(c, "invalid token")
			return
		}
		h.logger.Error("chat authorize failed", zap.Error(err))
		response.Internal(c, "failed to load chat")
		return
	}

	entries, err := h.feed.FetchForRegistration(c.Request.Context(), sess, reg, from, to)
	if err != nil {
		h.logger.Error("chat window failed", zap.Error(err))
		response.Internal(c, "failed to load chat")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}
