package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/model/persona"
	"github.com/zhouzirui/z-tutor/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
)

// ErrModelFailed marks a turn that failed inside a language model call.
var ErrModelFailed = errors.New("language model call failed")

// StreamHooks receive progress of a streamed turn. Either field may be nil.
type StreamHooks struct {
	// OnRoute fires once the question has been classified, before generation starts.
	OnRoute func(reply chat.Reply)
	OnDelta func(chunk string)
}

// Service runs one tutoring turn: classify the question, hand it to the
// matching professor, then record both sides of the exchange.
type Service struct {
	classifier *classifier.Service
	router     *ai.Service
	sessions   *chatservice.Service
	personas   persona.Store
	logger     *zap.Logger
}

// NewService wires the turn pipeline.
func NewService(cls *classifier.Service, router *ai.Service, sessions *chatservice.Service, personas persona.Store, l *zap.Logger) *Service {
	return &Service{
		classifier: cls,
		router:     router,
		sessions:   sessions,
		personas:   personas,
		logger:     logger.OrNop(l).Named("tutor"),
	}
}

// Personas lists the faculty.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}

// Classify exposes the classifier on its own, without touching any session.
func (s *Service) Classify(ctx context.Context, text string) (classifier.Result, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return classifier.Result{}, chatservice.ErrEmptyMessage
	}
	return s.classifier.Classify(ctx, input)
}

// Transcript returns the session's ordered turns.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	return s.sessions.LoadTranscript(ctx, sessionID)
}

// Reset starts a new conversation for the session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	id, err := chatservice.NormalizeSessionID(sessionID)
	if err != nil {
		return err
	}

	unlock := s.sessions.Lock(id)
	defer unlock()
	return s.sessions.Reset(ctx, id)
}

// Ask answers one message and returns the whole reply.
func (s *Service) Ask(ctx context.Context, sessionID, message string) (chat.Reply, error) {
	return s.run(ctx, sessionID, message, nil)
}

// AskStream answers one message, reporting the routing decision and reply
// chunks through hooks as they happen. When streaming is disabled the reply
// is delivered as a single chunk.
func (s *Service) AskStream(ctx context.Context, sessionID, message string, hooks StreamHooks) (chat.Reply, error) {
	return s.run(ctx, sessionID, message, &hooks)
}

// run 是一次完整回合：先分类再生成，全部成功后才写入历史，失败时不留下半个回合。
func (s *Service) run(ctx context.Context, sessionID, message string, hooks *StreamHooks) (chat.Reply, error) {
	id, err := chatservice.NormalizeSessionID(sessionID)
	if err != nil {
		return chat.Reply{}, err
	}
	input := strings.TrimSpace(message)
	if input == "" {
		return chat.Reply{}, chatservice.ErrEmptyMessage
	}

	unlock := s.sessions.Lock(id)
	defer unlock()

	started := time.Now()

	history, err := s.sessions.LoadTranscript(ctx, id)
	if err != nil {
		return chat.Reply{}, err
	}

	result, err := s.classifier.Classify(ctx, input)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: classify question: %w", ErrModelFailed, err)
	}

	p := s.router.PersonaFor(result.Category)
	reply := chat.Reply{
		SessionID: id,
		Category:  string(result.Category),
		PersonaID: p.ID,
		Persona:   p.Name,
	}

	if hooks != nil && hooks.OnRoute != nil {
		hooks.OnRoute(reply)
	}

	var content string
	if hooks != nil && s.router.StreamingEnabled() {
		content, err = s.stream(ctx, p, history, input, hooks.OnDelta)
	} else {
		content, err = s.generate(ctx, p, history, input)
		if err == nil && hooks != nil && hooks.OnDelta != nil {
			hooks.OnDelta(content)
		}
	}
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: generate reply: %w", ErrModelFailed, err)
	}
	reply.Content = content

	if err := s.sessions.SaveTurns(ctx, id,
		chat.UserTurn(input),
		chat.AssistantTurn(content, result.Category),
	); err != nil {
		return chat.Reply{}, err
	}

	s.logger.Info("turn completed",
		zap.String("session", id),
		zap.String("category", reply.Category),
		zap.String("raw_label", result.Raw),
		zap.Bool("label_fallback", result.Fallback),
		zap.String("persona", p.ID),
		zap.Int("history", len(history)),
		zap.Duration("elapsed", time.Since(started)))
	return reply, nil
}

func (s *Service) generate(ctx context.Context, p persona.Persona, history []chat.Turn, input string) (string, error) {
	response, err := s.router.GenerateResponse(ctx, p, history, input)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

func (s *Service) stream(ctx context.Context, p persona.Persona, history []chat.Turn, input string, onDelta func(string)) (string, error) {
	stream, err := s.router.StreamResponse(ctx, p, history, input)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}
	merged, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("concat reply chunks: %w", err)
	}
	return merged.Content, nil
}
