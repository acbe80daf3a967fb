package chat

// Session 是某个用户标识下的对话视图。
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// Reply 描述一次完整回合的结果。
type Reply struct {
	SessionID string `json:"sessionId"`
	Category  string `json:"category"`
	PersonaID string `json:"personaId"`
	Persona   string `json:"persona"`
	Content   string `json:"content"`
}
