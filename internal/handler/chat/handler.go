package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-tutor/backend/internal/handler/httpstatus"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
	"github.com/zhouzirui/z-tutor/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	tutor *tutor.Service
}

// New 创建聊天处理器
func New(tutorSvc *tutor.Service) *Handler {
	return &Handler{tutor: tutorSvc}
}

// RegisterRoutes 注册聊天相关的路由。limit 只作用于会触发模型调用的提问接口，可为 nil。
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.With(limit).Post("/classify", h.handleClassify)
	r.Get("/sessions/{userID}/messages", h.handleTranscript)
	r.With(limit).Post("/sessions/{userID}/messages", h.handleAsk)
	r.Delete("/sessions/{userID}", h.handleReset)
}

type textPayload struct {
	Text string `json:"text"`
}

// handleClassify 只做学科分类，不写入任何会话
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeText(w, r)
	if !ok {
		return
	}

	result, err := h.tutor.Classify(r.Context(), payload.Text)
	if err != nil {
		utils.RespondError(w, httpstatus.FromError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleTranscript 返回会话的完整记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	turns, err := h.tutor.Transcript(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, httpstatus.FromError(err), err.Error())
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	utils.RespondJSON(w, http.StatusOK, chat.Session{ID: userID, Turns: turns})
}

// handleAsk 完成一次提问回合并返回教授的回答
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeText(w, r)
	if !ok {
		return
	}

	reply, err := h.tutor.Ask(r.Context(), chi.URLParam(r, "userID"), payload.Text)
	if err != nil {
		utils.RespondError(w, httpstatus.FromError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleReset 开始新的对话
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.tutor.Reset(r.Context(), chi.URLParam(r, "userID")); err != nil {
		utils.RespondError(w, httpstatus.FromError(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeText(w http.ResponseWriter, r *http.Request) (textPayload, bool) {
	var payload textPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			utils.RespondError(w, http.StatusBadRequest, "request body is required")
		} else {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		}
		return textPayload{}, false
	}
	return payload, true
}
