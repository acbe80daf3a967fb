package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/handler/httpstatus"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
	"github.com/zhouzirui/z-tutor/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket 对话处理器，一个连接对应一个用户会话
type Handler struct {
	tutor    *tutor.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// readTimeout 只约束空闲等待，处理消息期间不计时。
	readTimeout time.Duration
}

// New 创建WebSocket处理器
func New(tutorSvc *tutor.Service, l *zap.Logger) *Handler {
	return &Handler{
		tutor:       tutorSvc,
		logger:      logger.OrNop(l).Named("ws"),
		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.With(limit).Get("/ws/{userID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本提问
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("connection opened", zap.String("session", sessionID))
	defer h.logger.Info("connection closed", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, sessionID, map[string]any{
		"type":     "connected",
		"personas": len(h.tutor.Personas()),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}

		if msg.SessionID != "" && strings.TrimSpace(msg.SessionID) != sessionID {
			h.sendError(conn, http.StatusBadRequest, "session mismatch")
			continue
		}

		// 一轮回答可能比 readTimeout 更久（模型超时是 120s），期间不读连接，所以先清掉截止时间，结束后重新计时。
		conn.SetReadDeadline(time.Time{})
		h.handleMessage(ctx, conn, sessionID, &msg)
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, sessionID, msg.Data)
	case "reset":
		h.handleReset(ctx, conn, sessionID)
	default:
		h.sendError(conn, http.StatusBadRequest, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, conn *websocket.Conn, sessionID string, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, http.StatusBadRequest, "invalid text payload")
		return
	}
	if strings.TrimSpace(text.Text) == "" {
		h.sendError(conn, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := h.tutor.AskStream(ctx, sessionID, text.Text, tutor.StreamHooks{
		OnRoute: func(route chat.Reply) {
			h.sendInfo(conn, sessionID, map[string]any{
				"type":      "route",
				"category":  route.Category,
				"personaId": route.PersonaID,
				"persona":   route.Persona,
			})
		},
		OnDelta: func(chunk string) {
			h.sendInfo(conn, sessionID, map[string]any{
				"type": "delta",
				"text": chunk,
			})
		},
	})
	if err != nil {
		h.logger.Warn("turn failed", zap.String("session", sessionID), zap.Error(err))
		h.sendError(conn, httpstatus.FromError(err), err.Error())
		return
	}

	h.sendInfo(conn, sessionID, map[string]any{
		"type":      "reply",
		"text":      reply.Content,
		"category":  reply.Category,
		"personaId": reply.PersonaID,
		"persona":   reply.Persona,
		"isFinal":   true,
	})
}

func (h *Handler) handleReset(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if err := h.tutor.Reset(ctx, sessionID); err != nil {
		h.sendError(conn, httpstatus.FromError(err), err.Error())
		return
	}
	h.sendInfo(conn, sessionID, map[string]any{"type": "reset"})
}

func (h *Handler) sendInfo(conn *websocket.Conn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("write result failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, status int, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]any{"message": message, "status": status},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("write error failed", zap.Error(err))
	}
}

// pingLoop 定期发送ping。WriteControl 可以与 WriteJSON 并发调用。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
