package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/proto"
	"github.com/interviewhub/server/internal/service/rooms"
	"github.com/interviewhub/server/internal/store"
)

// MessageHandlers serves chat history and the HTTP send side channel used
// by push-stream clients, whose stream is receive-only.
type MessageHandlers struct {
	rooms *rooms.Service
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(roomSvc *rooms.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		rooms: roomSvc,
		log:   logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	MessageID string       `json:"messageId"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp"`
	From      proto.Sender `json:"from"`
}

// Result wraps message endpoint responses.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		MessageID: msg.ID,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339),
		From: proto.Sender{
			ID:    msg.FromUserID,
			Name:  msg.FromName,
			Image: msg.FromImage,
		},
	}
}

// GetMessages returns the room's chat history for a participant.
// GET /api/messages/:roomId
func (h *MessageHandlers) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Result{Error: "unauthorized"})
		return
	}

	messages, err := h.rooms.History(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		writeResultError(c, h.log, err)
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageResponse(msg))
	}
	c.JSON(http.StatusOK, Result{Success: true, Data: response})
}

// PostMessage persists a message and broadcasts it to the room, equivalent
// to the socket transport's message frame handling.
// POST /api/messages/:roomId
func (h *MessageHandlers) PostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Result{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Result{Error: "invalid request body"})
		return
	}

	msg, err := h.rooms.SendMessage(c.Request.Context(), c.Param("roomId"), userID, req.Content)
	if err != nil {
		writeResultError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, Result{Success: true, Data: messageResponse(msg)})
}

// writeResultError maps domain errors onto the {success, error} wrapper.
func writeResultError(c *gin.Context, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, Result{Error: "unauthorized"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, Result{Error: "interview not found"})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, Result{Error: "access denied"})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, Result{Error: "message content is required"})
	default:
		logger.Error().Err(err).Msg("message endpoint error")
		c.JSON(http.StatusInternalServerError, Result{Error: "internal server error"})
	}
}
