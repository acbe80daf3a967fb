// Package tutortest builds a fully wired tutor.Service over a scripted chat
// model and an in-memory history store.
package tutortest

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	"github.com/zhouzirui/z-tutor/backend/internal/llmtest"
	"github.com/zhouzirui/z-tutor/backend/internal/model/persona"
	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
	"github.com/zhouzirui/z-tutor/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
)

// Classroom labels classification prompts with the keyword analyzer and
// answers every other prompt with "answer to <question>".
func Classroom(input []*schema.Message) (string, error) {
	question := llmtest.LastUserText(input)
	if llmtest.IsClassification(input) {
		return string(subject.Analyze(question).Category), nil
	}
	return "answer to " + question, nil
}

// Fixture exposes the pieces behind the service so tests can inspect them.
type Fixture struct {
	Service *tutor.Service
	Model   *llmtest.ChatModel
	Store   *history.MemoryStore
}

// New wires a service around respond. A nil respond uses Classroom.
func New(t testing.TB, respond llmtest.Responder, streaming bool) Fixture {
	t.Helper()
	if respond == nil {
		respond = Classroom
	}

	ctx := context.Background()
	chatModel := llmtest.New(respond)
	personas := persona.NewMemoryStore(persona.Seed())

	cls, err := classifier.NewService(ctx, chatModel, classifier.ModeLLM, nil)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	router, err := ai.NewService(ctx, chatModel, personas, ai.Options{Streaming: streaming}, nil)
	if err != nil {
		t.Fatalf("ai service: %v", err)
	}

	store := history.NewMemoryStore()
	sessions, err := chatservice.NewService(store, 16, nil)
	if err != nil {
		t.Fatalf("chat service: %v", err)
	}

	return Fixture{
		Service: tutor.NewService(cls, router, sessions, personas, nil),
		Model:   chatModel,
		Store:   store,
	}
}
