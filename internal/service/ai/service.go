package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/model/persona"
)

// ErrStreamingDisabled is returned by StreamResponse when streaming is turned off.
var ErrStreamingDisabled = errors.New("streaming disabled in configuration")

// Options tunes generation.
type Options struct {
	Streaming bool
	// HistoryLimit caps replayed turns; 0 replays the whole transcript.
	HistoryLimit int
}

// Service 根据学科选择教授，并用该教授的提示词调用模型生成回复。
type Service struct {
	personas persona.Store
	prompts  *PromptBuilder
	opts     Options
	chain    compose.Runnable[map[string]any, *schema.Message]
	logger   *zap.Logger
}

// NewService creates a new AI service instance
func NewService(ctx context.Context, chatModel model.ChatModel, personas persona.Store, opts Options, l *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		personas: personas,
		prompts:  NewPromptBuilder(),
		opts:     opts,
		chain:    runnable,
		logger:   logger.OrNop(l).Named("ai"),
	}, nil
}

// Route 把分类标签映射为教授。纯函数，无副作用，未知标签落到班主任。
func (s *Service) Route(label string) persona.Persona {
	return s.PersonaFor(subject.Route(label))
}

// PersonaFor returns the persona responsible for category.
func (s *Service) PersonaFor(category subject.Category) persona.Persona {
	return s.personas.ForCategory(category)
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.opts.Streaming
}

// GenerateResponse 以 p 的身份回答 input。history 只在该教授需要历史时才会发送给模型。
func (s *Service) GenerateResponse(ctx context.Context, p persona.Persona, history []chat.Turn, input string) (*schema.Message, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(p, history, input))
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	s.logger.Debug("generated response",
		zap.String("persona", p.ID),
		zap.Int("length", len(response.Content)))
	return response, nil
}

// StreamResponse streams reply chunks via the configured chain.
func (s *Service) StreamResponse(ctx context.Context, p persona.Persona, history []chat.Turn, input string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, ErrStreamingDisabled
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(p, history, input))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChainInput(p persona.Persona, history []chat.Turn, input string) map[string]any {
	values := map[string]any{
		"system": s.prompts.BuildSystemPrompt(p),
		"query":  input,
	}
	if p.IncludeHistory {
		values["history"] = s.buildHistoryMessages(history)
	}
	return values
}

func (s *Service) buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if limit := s.opts.HistoryLimit; limit > 0 && len(turns) > limit {
		startIdx = len(turns) - limit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
