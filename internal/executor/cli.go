package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/triadhq/trio/internal/config"
	"github.com/triadhq/trio/internal/schema"
)

// CLI invokes collaborators by spawning their configured CLI commands.
// The prompt is passed as the last argument, the way the claude and
// gemini CLIs accept it, and stdout is captured as the report source.
type CLI struct {
	cfg     *config.Config
	workDir string

	// baseBackoff is the delay before the second attempt; it doubles for
	// each attempt after that.
	baseBackoff time.Duration

	// seams for tests
	sleep func(time.Duration)
	run   func(ctx context.Context, role schema.Role, collab config.Collaborator, payload string) (string, error)
}

// NewCLI creates a subprocess-backed invoker. The configuration is
// resolved per role at invocation time but never mutated.
func NewCLI(cfg *config.Config, workDir string) *CLI {
	c := &CLI{
		cfg:         cfg,
		workDir:     workDir,
		baseBackoff: 2 * time.Second,
		sleep:       time.Sleep,
	}
	c.run = c.runOnce
	return c
}

// Invoke runs the collaborator for role with the given payload, retrying
// transient failures up to the configured attempt budget with exponential
// backoff. Fatal failures abort immediately; output that never parses
// surfaces as a *SchemaError once the budget is exhausted.
func (c *CLI) Invoke(ctx context.Context, role schema.Role, payload string) (*Report, error) {
	collab, err := c.cfg.ForRole(role)
	if err != nil {
		return nil, &FatalError{Role: role, Err: err}
	}

	attempts := collab.EffectiveRetries()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.sleep(c.baseBackoff << (attempt - 2))
		}
		if err := ctx.Err(); err != nil {
			// Operator cancellation is not a retryable condition.
			return nil, fmt.Errorf("collaborator %s canceled: %w", role, err)
		}

		output, err := c.run(ctx, role, collab, payload)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return nil, err
			}
			lastErr = err
			continue
		}

		report, err := ParseReport(role, output)
		if err != nil {
			lastErr = &SchemaError{Role: role, Err: err}
			continue
		}
		return report, nil
	}

	var schemaErr *SchemaError
	if errors.As(lastErr, &schemaErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("collaborator %s failed after %d attempts: %w", role, attempts, lastErr)
}

// runOnce spawns the collaborator process for a single attempt. A
// canceled or timed-out attempt never yields accepted output.
func (c *CLI) runOnce(ctx context.Context, role schema.Role, collab config.Collaborator, payload string) (string, error) {
	if _, err := exec.LookPath(collab.Cmd); err != nil {
		return "", &FatalError{Role: role, Cmd: collab.Cmd, Err: err}
	}

	timeout := time.Duration(collab.EffectiveTimeout(role)) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, len(collab.Args), len(collab.Args)+1)
	copy(args, collab.Args)
	args = append(args, payload)

	cmd := exec.CommandContext(ctx, collab.Cmd, args...)
	cmd.Dir = c.workDir
	cmd.Env = mergeEnv(os.Environ(), collab.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("collaborator %s after %s: %w", role, timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("collaborator %s exited with code %d: %s", role, exitErr.ExitCode(), msg)
	}

	// Anything else means the command could not be started at all.
	return "", &FatalError{Role: role, Cmd: collab.Cmd, Err: err}
}

// mergeEnv applies overrides on top of the inherited environment.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, kv)
	}
	for key, val := range overrides {
		merged = append(merged, key+"="+val)
	}
	return merged
}
