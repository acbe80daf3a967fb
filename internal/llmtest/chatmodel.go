// Package llmtest provides a scripted eino chat model for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Responder produces a reply for the messages sent to the model.
type Responder func(input []*schema.Message) (string, error)

// ChatModel is a model.ChatModel whose replies come from a Responder.
type ChatModel struct {
	mu        sync.Mutex
	respond   Responder
	calls     [][]*schema.Message
	chunkSize int
}

var _ model.ChatModel = (*ChatModel)(nil)

// New returns a ChatModel answering with respond.
func New(respond Responder) *ChatModel {
	return &ChatModel{respond: respond, chunkSize: 4}
}

// Static always replies with text.
func Static(text string) *ChatModel {
	return New(func([]*schema.Message) (string, error) { return text, nil })
}

// Failing always returns err.
func Failing(err error) *ChatModel {
	return New(func([]*schema.Message) (string, error) { return "", err })
}

// ErrBackendDown is a convenience error for failure tests.
var ErrBackendDown = errors.New("model backend unavailable")

func (m *ChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	text, err := m.record(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (m *ChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	text, err := m.record(input)
	if err != nil {
		return nil, err
	}

	chunks := make([]*schema.Message, 0, len(text)/m.chunkSize+1)
	for start := 0; start < len(text); start += m.chunkSize {
		end := start + m.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, schema.AssistantMessage(text[start:end], nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *ChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

// Calls returns every message list the model received, in order.
func (m *ChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

func (m *ChatModel) record(input []*schema.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]*schema.Message(nil), input...))
	m.mu.Unlock()
	return m.respond(input)
}

// LastUserText returns the content of the final user message in input.
func LastUserText(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == schema.User {
			return input[i].Content
		}
	}
	return ""
}

// SystemText returns the content of the system message, if any.
func SystemText(input []*schema.Message) string {
	for _, msg := range input {
		if msg.Role == schema.System {
			return msg.Content
		}
	}
	return ""
}

// IsClassification reports whether input was built by the subject classifier.
func IsClassification(input []*schema.Message) bool {
	return strings.Contains(SystemText(input), "classification bot")
}
