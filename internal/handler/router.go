package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/handler/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/handler/persona"
	"github.com/zhouzirui/z-tutor/backend/internal/handler/stream"
	"github.com/zhouzirui/z-tutor/backend/internal/handler/ws"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	middlewarePkg "github.com/zhouzirui/z-tutor/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-tutor/backend/internal/model/persona"
	tutorService "github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
	"github.com/zhouzirui/z-tutor/backend/pkg/utils"
	"github.com/zhouzirui/z-tutor/backend/web"
)

// NewRouter wires HTTP routes to core services. A nil limiter disables rate limiting.
func NewRouter(personas personaModel.Store, tutorSvc *tutorService.Service, limiter *middlewarePkg.RateLimiter, l *zap.Logger) http.Handler {
	l = logger.OrNop(l)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, web.Assets, "index.html")
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create handlers
	personaHandler := persona.New(personas)
	chatHandler := chat.New(tutorSvc)
	streamHandler := stream.New(tutorSvc, l)
	wsHandler := ws.New(tutorSvc, l)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api, limiter.PerUser)
		streamHandler.RegisterRoutes(api, limiter.PerUser)
		wsHandler.RegisterRoutes(api, limiter.PerUser)
	})

	return r
}
