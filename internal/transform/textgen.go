package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a generator exceeds its deadline.
var ErrTimeout = errors.New("generation timed out")

// DefaultTimeout applies when a generator is built without a positive timeout.
const DefaultTimeout = 120 * time.Second

// TextGenerator turns an instruction into generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CommandGenerator runs a local process per request with the instruction as
// its final argument and returns the trimmed standard output.
type CommandGenerator struct {
	// Command is the argv prefix, e.g. ["ollama", "run", "llama3"].
	Command []string
	Timeout time.Duration
}

// NewCommandGenerator creates a CommandGenerator.
func NewCommandGenerator(command []string, timeout time.Duration) *CommandGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandGenerator{Command: command, Timeout: timeout}
}

// Generate runs the command and waits for it to exit.
func (g *CommandGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.Command) == 0 {
		return "", errors.New("text generation command is not configured")
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, g.Command[1:]...), prompt)
	cmd := exec.CommandContext(ctx, g.Command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", g.Command[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", g.Command[0], err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
