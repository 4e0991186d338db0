// Package process runs node action handlers as local commands.
//
// Only commands listed in the runner are executed. Call arguments never
// reach the command line: each one is passed as a FLOWS_ARG_<NAME>
// environment variable, and the full argument object as FLOWS_ARGS.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
)

// Runner executes allow-listed commands on behalf of node actions.
type Runner struct {
	commands map[string]Config
	baseDir  string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithConfig populates the allow-list from a loaded handlers file.
func WithConfig(handlers map[string]Config) RunnerOption {
	return func(r *Runner) {
		for _, h := range handlers {
			r.commands[h.Name] = h
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		commands: make(map[string]Config),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.commands[name] = Config{Name: name, Command: command, Args: args}
}

// Names returns the allow-listed action names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterAll binds every allow-listed command as a handler in reg.
func (r *Runner) RegisterAll(reg *registry.Registry) error {
	for _, name := range r.Names() {
		if err := reg.Register(name, r.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle runs the command registered for call.Name. A command that exits
// non-zero yields an error result carrying its stderr. Output that parses
// as a JSON object becomes the result; any other output is returned under
// "output".
func (r *Runner) Handle(ctx context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	proc, ok := r.commands[call.Name]
	if !ok {
		return nil, &domain.UnknownActionError{Name: call.Name}
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	env, err := argsEnv(call.Args)
	if err != nil {
		return nil, err
	}
	cmd.Env = append(cmd.Environ(), env...)
	for k, v := range proc.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running handler command", "action", call.Name, "command", proc.Command)
	if err := cmd.Run(); err != nil {
		r.logger.Warn("handler command failed", "action", call.Name, "err", err, "stderr", strings.TrimSpace(stderr.String()))
		return domain.ErrorResult(fmt.Sprintf("%s failed: %v: %s", call.Name, err, strings.TrimSpace(stderr.String()))), nil
	}

	out := strings.TrimSpace(stdout.String())
	if strings.HasPrefix(out, "{") {
		var res domain.Result
		if err := json.Unmarshal([]byte(out), &res); err == nil {
			return res, nil
		}
	}
	return domain.Result{"status": "success", "output": out}, nil
}

func argsEnv(args map[string]any) ([]string, error) {
	all, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	env := []string{"FLOWS_ARGS=" + string(all)}

	for k, v := range args {
		var val string
		switch v := v.(type) {
		case nil:
		case string:
			val = v
		case int, int64, float64, bool, json.Number:
			val = fmt.Sprintf("%v", v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode argument %s: %w", k, err)
			}
			val = string(b)
		}
		env = append(env, "FLOWS_ARG_"+strings.ToUpper(k)+"="+val)
	}
	return env, nil
}
