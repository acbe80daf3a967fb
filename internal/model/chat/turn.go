package chat

import (
	"time"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
)

// Role 标识一条消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. Turns are never mutated after creation.
type Turn struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Category  subject.Category `json:"category,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// UserTurn 构造用户消息。
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// AssistantTurn 构造教授的回复，并记录回答所用的学科。
func AssistantTurn(content string, category subject.Category) Turn {
	return Turn{Role: RoleAssistant, Content: content, Category: category, CreatedAt: time.Now().UTC()}
}
