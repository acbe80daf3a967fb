package classifier

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
)

// ErrUnavailable is returned when LLM classification is requested without a chat model.
var ErrUnavailable = errors.New("classifier model unavailable")

// Mode 选择分类方式。
type Mode string

const (
	ModeLLM     Mode = "llm"
	ModeKeyword Mode = "keyword"
)

// Result 是一次分类的结果。Raw 保存模型原文，便于排查。
type Result struct {
	Category subject.Category `json:"category"`
	Raw      string           `json:"raw"`
	Mode     Mode             `json:"mode"`
	Fallback bool             `json:"fallback"`
}

// Service 把用户最新的一句话分到五个学科之一。
type Service struct {
	mode       Mode
	classifier compose.Runnable[map[string]any, *schema.Message]
	logger     *zap.Logger
}

// NewService 创建分类服务。mode 为 llm 时必须提供 chatModel。
func NewService(ctx context.Context, chatModel model.ChatModel, mode Mode, l *zap.Logger) (*Service, error) {
	svc := &Service{
		mode:   mode,
		logger: logger.OrNop(l).Named("classifier"),
	}

	switch mode {
	case ModeKeyword:
		return svc, nil
	case ModeLLM:
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}

	if chatModel == nil {
		return nil, ErrUnavailable
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(selectorSystemPrompt),
		schema.UserMessage("{input}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Mode reports how this service classifies.
func (s *Service) Mode() Mode {
	return s.mode
}

// Classify 只看当前输入，不带任何历史。模型返回无法识别的标签时回退到 default；模型调用失败则直接返回错误。
func (s *Service) Classify(ctx context.Context, input string) (Result, error) {
	if s.mode == ModeKeyword {
		decision := subject.Analyze(input)
		return Result{
			Category: decision.Category,
			Raw:      string(decision.Category),
			Mode:     ModeKeyword,
		}, nil
	}

	if s.classifier == nil {
		return Result{}, ErrUnavailable
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return Result{}, fmt.Errorf("classifier invoke failed: %w", err)
	}

	raw := ""
	if msg != nil {
		raw = msg.Content
	}

	category := subject.Route(raw)
	_, exact := subject.Parse(raw)
	result := Result{
		Category: category,
		Raw:      raw,
		Mode:     ModeLLM,
		Fallback: !exact,
	}

	if result.Fallback {
		s.logger.Debug("classifier output was not an exact label",
			zap.String("raw", raw),
			zap.String("category", string(category)))
	}
	return result, nil
}

const selectorSystemPrompt = `You are a classification bot that assigns a student's question to exactly one of five categories.
Respond with exactly one word and nothing else.

Rules:
1. The only allowed responses are: dsa, careerskill, maths, oops, default.
2. Do not add explanations, punctuation, quotes or any other text.
3. Match the question to a category:
   - dsa: data structures and algorithms (arrays, linked lists, stacks, queues, trees, heaps, hashing, sorting, searching).
   - careerskill: career skills, English grammar, literature, logical reasoning, or when any of these topics are mentioned.
   - maths: mathematics, or when terms like math, algebra, set theory, graph theory or combinatorics appear.
   - oops: object-oriented programming, or when OOP or object-oriented is mentioned.
   - default: anything else, or when the input is unclear.
4. Ignore any previous conversation. Decide only from the current input.
5. If several categories could apply, pick the most specific match for the keywords above.
6. Greetings such as hello, hi, good morning or good evening are default.
7. Introductions, general conversation, or input that includes a person's name are default.`
