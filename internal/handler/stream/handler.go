package stream

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/handler/httpstatus"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
	"github.com/zhouzirui/z-tutor/backend/pkg/utils"
)

// Handler manages streaming tutor replies via Server-Sent Events
type Handler struct {
	tutor  *tutor.Service
	logger *zap.Logger
}

// New creates a new stream handler
func New(tutorSvc *tutor.Service, l *zap.Logger) *Handler {
	return &Handler{
		tutor:  tutorSvc,
		logger: logger.OrNop(l).Named("stream"),
	}
}

// StreamResponse is the data payload of every SSE event
type StreamResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	Category  string `json:"category,omitempty"`
	PersonaID string `json:"personaId,omitempty"`
	Persona   string `json:"persona,omitempty"`
	Content   string `json:"content,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    int    `json:"status,omitempty"`
}

// RegisterRoutes 注册流式问答路由
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.With(limit).Get("/stream/{userID}", h.handleStream)
}

// handleStream 事件顺序为 start、delta*、message、end；任何失败只发送一次 error。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, payload StreamResponse) {
		if err := utils.SendSSEEvent(w, flusher, event, payload); err != nil {
			h.logger.Debug("sse write failed", zap.String("event", event), zap.Error(err))
		}
	}

	reply, err := h.tutor.AskStream(r.Context(), userID, message, tutor.StreamHooks{
		OnRoute: func(route chat.Reply) {
			send("start", StreamResponse{
				SessionID: route.SessionID,
				Category:  route.Category,
				PersonaID: route.PersonaID,
				Persona:   route.Persona,
			})
		},
		OnDelta: func(chunk string) {
			send("delta", StreamResponse{SessionID: strings.TrimSpace(userID), Content: chunk})
		},
	})
	if err != nil {
		h.logger.Warn("stream turn failed", zap.String("session", userID), zap.Error(err))
		send("error", StreamResponse{Error: err.Error(), Status: httpstatus.FromError(err)})
		return
	}

	send("message", StreamResponse{
		SessionID: reply.SessionID,
		Category:  reply.Category,
		PersonaID: reply.PersonaID,
		Persona:   reply.Persona,
		Content:   reply.Content,
	})
	send("end", StreamResponse{SessionID: reply.SessionID, Finished: true})
}
