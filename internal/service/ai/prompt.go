package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-tutor/backend/internal/model/persona"
)

// PromptBuilder turns a persona record into a system prompt.
type PromptBuilder struct {
	classroomRules []string
}

// NewPromptBuilder returns a builder with the shared classroom rules.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		classroomRules: []string{
			"Stay in character for the whole answer.",
			"Answer the student's actual question before adding anything else.",
			"Keep explanations accurate; say so plainly when you are unsure.",
			"Use Markdown for code and lists.",
		},
	}
}

// BuildSystemPrompt creates the system prompt for p.
func (b *PromptBuilder) BuildSystemPrompt(p persona.Persona) string {
	if strings.TrimSpace(p.Instruction) == "" {
		return b.buildBasicSystemPrompt(p)
	}

	var builder strings.Builder
	builder.WriteString(strings.TrimSpace(p.Instruction))
	if p.Catchphrase != "" {
		builder.WriteString("\n\nYour catchphrase: \"")
		builder.WriteString(p.Catchphrase)
		builder.WriteString("\"")
	}
	if len(p.Quirks) > 0 {
		builder.WriteString("\n\nHow you teach:\n- ")
		builder.WriteString(strings.Join(p.Quirks, "\n- "))
	}
	builder.WriteString("\n\nClassroom rules:\n- ")
	builder.WriteString(strings.Join(b.classroomRules, "\n- "))
	return builder.String()
}

func (b *PromptBuilder) buildBasicSystemPrompt(p persona.Persona) string {
	return fmt.Sprintf(`You are %s, %s.

Subject: %s
Tone: %s

Stay in character and answer the student's question in a %s manner.`,
		p.Name,
		p.Title,
		p.Subject,
		p.Tone,
		p.Tone,
	)
}
