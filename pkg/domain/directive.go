package domain

// Known directive types.
const (
	// DirectiveSpeak sends Text to the speech output.
	DirectiveSpeak = "speak"
	// DirectiveTTSSay is an alias of DirectiveSpeak.
	DirectiveTTSSay = "tts_say"
	// DirectiveEndConversation ends the conversation.
	DirectiveEndConversation = "end_conversation"
)

// Directive is a side effect executed around a node transition.
// It is never visible to the LLM.
type Directive struct {
	Type   string         `json:"type" yaml:"type" mapstructure:"type"`
	Text   string         `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Speak builds a speak directive.
func Speak(text string) Directive {
	return Directive{Type: DirectiveSpeak, Text: text}
}

// EndConversation builds an end_conversation directive.
func EndConversation() Directive {
	return Directive{Type: DirectiveEndConversation}
}
