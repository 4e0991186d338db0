package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ContentRenderer transforms assistant text before it is printed, for
// example markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Console is a line-oriented terminal: it reads user input and implements
// ports.Speaker for assistant output.
type Console struct {
	reader   *bufio.Reader
	writer   io.Writer
	renderer ContentRenderer
	prompt   string
	label    func(string) string

	mu        sync.Mutex
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithRenderer configures the content renderer.
func WithRenderer(renderer ContentRenderer) ConsoleOption {
	return func(c *Console) {
		c.renderer = renderer
	}
}

// WithPrompt sets the input prompt, "> " by default.
func WithPrompt(prompt string) ConsoleOption {
	return func(c *Console) {
		c.prompt = prompt
	}
}

// WithSystemLabel styles the "[System]" prefix of meta messages.
func WithSystemLabel(style func(string) string) ConsoleOption {
	return func(c *Console) {
		c.label = style
	}
}

// NewConsole creates a console over r and w, defaulting to stdin and stdout.
func NewConsole(r io.Reader, w io.Writer, opts ...ConsoleOption) *Console {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		reader: bufio.NewReader(r),
		writer: w,
		prompt: "> ",
		label:  func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak prints assistant text through the renderer.
func (c *Console) Speak(_ context.Context, text string) error {
	output := text
	if c.renderer != nil {
		if rendered, err := c.renderer(text); err == nil {
			output = rendered
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.writer, strings.TrimSpace(output))
	return err
}

// SystemOutput presents a meta-message distinct from conversation content.
func (c *Console) SystemOutput(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "%s %s\n", c.label("[System]"), msg)
}

// ReadLine prompts and returns the next trimmed line. It returns io.EOF when
// the input is exhausted and ctx.Err() when ctx is canceled first.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	c.startOnce.Do(func() {
		c.inputChan = make(chan inputResult)
		go c.pump()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		c.mu.Lock()
		fmt.Fprint(c.writer, c.prompt)
		c.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-c.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

func (c *Console) pump() {
	for {
		text, err := c.reader.ReadString('\n')
		if text != "" {
			c.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(c.inputChan)
				return
			}
			c.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}
