package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/auth"
	"github.com/interviewhub/server/internal/config"
	"github.com/interviewhub/server/internal/rtc/livekit"
	"github.com/interviewhub/server/internal/service/rooms"
	"github.com/interviewhub/server/internal/store"
)

// NewServer builds the HTTP server with REST, push-stream, and socket routes.
func NewServer(
	roomSvc *rooms.Service,
	authService *auth.Service,
	st store.Store,
	rtc *livekit.Provider,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	interviewHandlers := NewInterviewHandlers(st, roomSvc, rtc, logger)
	messageHandlers := NewMessageHandlers(roomSvc, logger)
	sseHandler := NewSSEHandler(roomSvc, authService, logger)
	wsHandler := NewWSHandler(roomSvc, authService, cfg, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.POST("/api/register", apiHandlers.Register)
	router.POST("/api/login", apiHandlers.Login)

	// The push-stream and socket endpoints resolve their own sessions: the
	// stream must support cookie auth (EventSource cannot set headers) and
	// the socket re-authorizes per frame.
	router.GET("/api/sse", sseHandler.Handle)
	router.GET("/ws", gin.WrapH(wsHandler))

	authorized := router.Group("/", AuthMiddleware(authService, logger))
	authorized.GET("/api/interviews", interviewHandlers.ListInterviews)
	authorized.POST("/api/interviews", interviewHandlers.CreateInterview)
	authorized.POST("/api/interviews/:roomId/problems", interviewHandlers.AddProblem)
	authorized.POST("/api/problems/:problemId/testcases", interviewHandlers.AddTestCase)
	authorized.GET("/api/rtc-token", interviewHandlers.RTCToken)
	authorized.GET("/api/messages/:roomId", messageHandlers.GetMessages)
	authorized.POST("/api/messages/:roomId", messageHandlers.PostMessage)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
