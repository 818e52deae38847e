package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/rtc/livekit"
	"github.com/interviewhub/server/internal/service/rooms"
	"github.com/interviewhub/server/internal/store"
	"github.com/interviewhub/server/internal/utils"
)

// InterviewHandlers provides HTTP handlers for interview scheduling and
// room-scoped content (problems, test cases, video tokens).
type InterviewHandlers struct {
	store store.Store
	rooms *rooms.Service
	rtc   *livekit.Provider
	log   *zerolog.Logger
}

// NewInterviewHandlers creates a new interview handlers instance.
func NewInterviewHandlers(st store.Store, roomSvc *rooms.Service, rtc *livekit.Provider, logger *zerolog.Logger) *InterviewHandlers {
	return &InterviewHandlers{
		store: st,
		rooms: roomSvc,
		rtc:   rtc,
		log:   logger,
	}
}

// CreateInterviewRequest represents the create interview request body.
type CreateInterviewRequest struct {
	IntervieweeID string    `json:"intervieweeId" binding:"required"`
	Title         string    `json:"title" binding:"required,min=1,max=128"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"startTime" binding:"required"`
	EndTime       time.Time `json:"endTime" binding:"required"`
}

// InterviewResponse represents an interview in API responses.
type InterviewResponse struct {
	ID            string `json:"id"`
	RoomID        string `json:"roomId"`
	InterviewerID string `json:"interviewerId"`
	IntervieweeID string `json:"intervieweeId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

func interviewResponse(iv *store.Interview) InterviewResponse {
	return InterviewResponse{
		ID:            iv.ID,
		RoomID:        iv.RoomID,
		InterviewerID: iv.InterviewerID,
		IntervieweeID: iv.IntervieweeID,
		Title:         iv.Title,
		Description:   iv.Description,
		Status:        string(iv.Status),
		StartTime:     iv.StartTime.UTC().Format(time.RFC3339),
		EndTime:       iv.EndTime.UTC().Format(time.RFC3339),
	}
}

// CreateInterview schedules a new interview with the caller as interviewer.
// POST /api/interviews
func (h *InterviewHandlers) CreateInterview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create interview request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.IntervieweeID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "interviewee not found"})
		return
	}

	iv := &store.Interview{
		ID:            uuid.NewString(),
		RoomID:        utils.NewRoomID(),
		InterviewerID: userID,
		IntervieweeID: req.IntervieweeID,
		Title:         req.Title,
		Description:   req.Description,
		Status:        store.InterviewStatusPending,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}
	if err := h.store.CreateInterview(c.Request.Context(), iv); err != nil {
		h.log.Error().Err(err).Str("interviewer", userID).Msg("failed to create interview")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("interview_id", iv.ID).Str("room_id", iv.RoomID).Msg("interview created")
	c.JSON(http.StatusCreated, interviewResponse(iv))
}

// ListInterviews lists interviews where the caller is a participant.
// GET /api/interviews
func (h *InterviewHandlers) ListInterviews(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	interviews, err := h.store.ListInterviews(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list interviews")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]InterviewResponse, 0, len(interviews))
	for _, iv := range interviews {
		response = append(response, interviewResponse(iv))
	}
	c.JSON(http.StatusOK, response)
}

// AddProblemRequest represents the add problem request body.
type AddProblemRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=128"`
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// AddProblem attaches a problem to the room's interview and pushes a
// problemAdded frame to connected participants.
// POST /api/interviews/:roomId/problems
func (h *InterviewHandlers) AddProblem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AddProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.rooms.AddProblem(c.Request.Context(), c.Param("roomId"), userID, rooms.ProblemInput{
		Title:       req.Title,
		Description: req.Description,
		Score:       req.Score,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
		"score":       p.Score,
	})
}

// AddTestCaseRequest represents the add test case request body.
type AddTestCaseRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
}

// AddTestCase attaches a test case to a problem and pushes a testCaseAdded
// frame to the room.
// POST /api/problems/:problemId/testcases
func (h *InterviewHandlers) AddTestCase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AddTestCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tc, err := h.rooms.AddTestCase(c.Request.Context(), req.RoomID, c.Param("problemId"), userID, req.Input, req.Output)
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"testCaseId": tc.ID,
		"input":      tc.Input,
		"output":     tc.Output,
	})
}

// RTCToken returns LiveKit join credentials for a room participant.
// GET /api/rtc-token?roomId=...
func (h *InterviewHandlers) RTCToken(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "roomId is required"})
		return
	}

	if !h.rtc.Enabled() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "video is not configured"})
		return
	}

	if _, err := h.rooms.Authorize(c.Request.Context(), roomID, userID); err != nil {
		writeDomainError(c, h.log, err)
		return
	}

	name, _ := c.Get(ContextKeyUserName)
	displayName, _ := name.(string)

	info, err := h.rtc.GenerateJoinInfo(roomID, userID, displayName)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to generate rtc token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, info)
}

// writeDomainError maps room-service errors to HTTP statuses.
func writeDomainError(c *gin.Context, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "interview not found"})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg("unexpected domain error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
