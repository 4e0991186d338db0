package runner

import (
	"context"
	"errors"
	"io"
)

// Chat runs an interactive conversation on the console until the flow ends,
// the input is exhausted or ctx is canceled. An interrupt during a turn
// abandons that turn only; an interrupt at the prompt ends the chat.
func Chat(ctx context.Context, r *Runner, c *Console) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	if _, err := r.Start(signals.Context()); err != nil {
		return err
	}

	for !r.ended() {
		line, err := c.ReadLine(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		_, err = r.Turn(signals.Context(), line)
		switch {
		case err == nil:
		case signals.Interrupted():
			c.SystemOutput("turn interrupted")
			signals.Reset()
		case errors.Is(err, ErrInputTooLarge), errors.Is(err, ErrInvalidUTF8), errors.Is(err, ErrMaxSteps):
			c.SystemOutput(err.Error())
		default:
			return err
		}
	}
	c.SystemOutput("conversation ended")
	return nil
}
