package ports

import "context"

// Speaker sends text to the speech output (TTS, terminal, transport).
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

// Speak implements Speaker.
func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}
