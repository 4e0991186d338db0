package domain

// Snapshot is the observable state of a conversation.
type Snapshot struct {
	ConversationID string    `json:"conversation_id"`
	CurrentNodeID  string    `json:"current_node"`
	Messages       []Message `json:"messages"`
	Tools          []Tool    `json:"tools"`

	// History lists every node entered, starting with the initial node.
	History []string `json:"history"`
	Ended   bool     `json:"ended"`
}

// Clone returns a deep enough copy for callers to mutate freely.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = CloneMessages(s.Messages)
	c.Tools = append([]Tool(nil), s.Tools...)
	c.History = append([]string(nil), s.History...)
	return &c
}
