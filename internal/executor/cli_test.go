package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/triadhq/trio/internal/config"
	"github.com/triadhq/trio/internal/schema"
)

func testConfig(retries int) *config.Config {
	collab := config.Collaborator{Cmd: "fake-collab", MaxRetries: retries}
	return &config.Config{
		Version: 1,
		Roles: map[schema.Role]config.Collaborator{
			schema.RoleArchitect:   collab,
			schema.RoleImplementer: collab,
			schema.RoleAuditor:     collab,
		},
	}
}

const validTaskJSON = `{
	"task_id": "TASK-001",
	"title": "Add endpoint",
	"description": "desc",
	"acceptance_criteria": ["works"],
	"priority": "medium"
}`

// scriptedCLI returns a CLI whose run seam pops outputs/errors in order
// and whose sleep seam records backoff delays instead of sleeping.
func scriptedCLI(cfg *config.Config, outputs []string, errs []error) (*CLI, *[]time.Duration) {
	c := NewCLI(cfg, ".")
	var delays []time.Duration
	c.sleep = func(d time.Duration) { delays = append(delays, d) }
	attempt := 0
	c.run = func(context.Context, schema.Role, config.Collaborator, string) (string, error) {
		i := attempt
		attempt++
		if i < len(errs) && errs[i] != nil {
			return "", errs[i]
		}
		if i < len(outputs) {
			return outputs[i], nil
		}
		return "", fmt.Errorf("no scripted attempt %d", i)
	}
	return c, &delays
}

func TestInvoke_SucceedsFirstAttempt(t *testing.T) {
	c, delays := scriptedCLI(testConfig(3), []string{validTaskJSON}, nil)

	report, err := c.Invoke(context.Background(), schema.RoleArchitect, "plan it")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if report.Task == nil || report.Task.TaskID != "TASK-001" {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(*delays) != 0 {
		t.Errorf("slept %v before first attempt", *delays)
	}
}

func TestInvoke_RetriesTransientWithBackoff(t *testing.T) {
	c, delays := scriptedCLI(testConfig(3),
		[]string{"", "", validTaskJSON},
		[]error{fmt.Errorf("exit 1"), fmt.Errorf("%w", ErrTimeout), nil})

	report, err := c.Invoke(context.Background(), schema.RoleArchitect, "plan it")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if report.Task == nil {
		t.Fatal("no report after retries")
	}

	// Exponential: base before attempt 2, doubled before attempt 3.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, (*delays)[i], want[i])
		}
	}
}

// A max_retries of 2 is a total budget of exactly two attempts.
func TestInvoke_BudgetExhausted(t *testing.T) {
	attempts := 0
	c := NewCLI(testConfig(2), ".")
	c.sleep = func(time.Duration) {}
	c.run = func(context.Context, schema.Role, config.Collaborator, string) (string, error) {
		attempts++
		return "", fmt.Errorf("collaborator timed out: %w", ErrTimeout)
	}

	_, err := c.Invoke(context.Background(), schema.RoleImplementer, "do it")
	if err == nil {
		t.Fatal("expected failure after budget exhausted")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want exactly 2", attempts)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error chain should retain ErrTimeout: %v", err)
	}
}

func TestInvoke_FatalAbortsImmediately(t *testing.T) {
	attempts := 0
	c := NewCLI(testConfig(3), ".")
	c.sleep = func(time.Duration) {}
	c.run = func(_ context.Context, role schema.Role, collab config.Collaborator, _ string) (string, error) {
		attempts++
		return "", &FatalError{Role: role, Cmd: collab.Cmd, Err: fmt.Errorf("executable not found")}
	}

	_, err := c.Invoke(context.Background(), schema.RoleAuditor, "review it")
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, fatal errors must not be retried", attempts)
	}
}

func TestInvoke_MissingRoleIsFatal(t *testing.T) {
	cfg := &config.Config{Roles: map[schema.Role]config.Collaborator{}}
	c := NewCLI(cfg, ".")

	_, err := c.Invoke(context.Background(), schema.RoleArchitect, "plan it")
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError for unconfigured role, got %v", err)
	}
}

func TestInvoke_MalformedOutputIsSchemaError(t *testing.T) {
	c, _ := scriptedCLI(testConfig(2),
		[]string{"I could not produce JSON, sorry.", "still no json"}, nil)

	_, err := c.Invoke(context.Background(), schema.RoleArchitect, "plan it")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if schemaErr.Role != schema.RoleArchitect {
		t.Errorf("schema error role = %s, want architect", schemaErr.Role)
	}
}

// Malformed output on early attempts still retries; only exhausting the
// budget surfaces the SchemaError.
func TestInvoke_MalformedThenValid(t *testing.T) {
	c, _ := scriptedCLI(testConfig(3),
		[]string{"no json here", validTaskJSON}, nil)

	report, err := c.Invoke(context.Background(), schema.RoleArchitect, "plan it")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if report.Task == nil {
		t.Fatal("expected parsed report on second attempt")
	}
}

func TestInvoke_CanceledContextNotRetried(t *testing.T) {
	attempts := 0
	c := NewCLI(testConfig(3), ".")
	c.sleep = func(time.Duration) {}
	ctx, cancel := context.WithCancel(context.Background())
	c.run = func(context.Context, schema.Role, config.Collaborator, string) (string, error) {
		attempts++
		cancel()
		return "", fmt.Errorf("killed")
	}

	_, err := c.Invoke(ctx, schema.RoleArchitect, "plan it")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain should retain context.Canceled: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, cancellation must stop retries", attempts)
	}
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/u", "MODEL=old"}
	merged := mergeEnv(base, map[string]string{"MODEL": "new", "EXTRA": "1"})

	got := map[string]string{}
	for _, kv := range merged {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				got[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	if got["MODEL"] != "new" {
		t.Errorf("MODEL = %q, override should win", got["MODEL"])
	}
	if got["PATH"] != "/usr/bin" {
		t.Errorf("PATH = %q, base vars should survive", got["PATH"])
	}
	if got["EXTRA"] != "1" {
		t.Errorf("EXTRA = %q, new vars should be added", got["EXTRA"])
	}
}
