// Package config loads the per-role collaborator configuration from
// .trio/config.yaml. The configuration is resolved once at startup and
// treated as immutable for the process lifetime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/triadhq/trio/internal/schema"
)

// Error reports malformed or missing configuration. It is fatal and
// surfaced before any pipeline stage runs.
type Error struct {
	msg string
}

func (e *Error) Error() string { return "config: " + e.msg }

func errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Config is the root configuration for a trio project.
type Config struct {
	Version  int                          `yaml:"version"`
	Roles    map[schema.Role]Collaborator `yaml:"roles"`
	Pipeline Pipeline                     `yaml:"pipeline"`
}

// Collaborator describes how to invoke one external collaborator CLI.
type Collaborator struct {
	Cmd        string            `yaml:"cmd"`                   // command to spawn
	Args       []string          `yaml:"args,omitempty"`        // arguments before the prompt
	Env        map[string]string `yaml:"env,omitempty"`         // environment overrides
	TimeoutSec int               `yaml:"timeout_sec,omitempty"` // per-attempt timeout (0 = role default)
	MaxRetries int               `yaml:"max_retries,omitempty"` // total attempt budget (0 = default 3)
}

// Pipeline holds orchestrator policy knobs.
type Pipeline struct {
	// MaxMinorRetries bounds the minor-severity fast re-implementation
	// path per task before escalating to major handling.
	MaxMinorRetries int  `yaml:"max_minor_retries,omitempty"`
	AutoCommit      bool `yaml:"auto_commit"`
	AutoPush        bool `yaml:"auto_push"`
}

// Role default timeouts, matching the work each collaborator does.
var defaultTimeouts = map[schema.Role]int{
	schema.RoleArchitect:   300,
	schema.RoleImplementer: 900,
	schema.RoleAuditor:     300,
}

// EffectiveTimeout returns the per-attempt timeout in seconds for a role.
func (c Collaborator) EffectiveTimeout(role schema.Role) int {
	if c.TimeoutSec > 0 {
		return c.TimeoutSec
	}
	if d, ok := defaultTimeouts[role]; ok {
		return d
	}
	return 300
}

// EffectiveRetries returns the total attempt budget for an invocation.
func (c Collaborator) EffectiveRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

// EffectiveMinorRetries returns the minor-rejection fast-path bound.
func (p Pipeline) EffectiveMinorRetries() int {
	if p.MaxMinorRetries > 0 {
		return p.MaxMinorRetries
	}
	return 2
}

// ForRole returns the collaborator configuration for a role.
func (c *Config) ForRole(role schema.Role) (Collaborator, error) {
	collab, ok := c.Roles[role]
	if !ok {
		return Collaborator{}, errorf("no collaborator configured for role %q", role)
	}
	return collab, nil
}

// Load reads and validates the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf("read %s: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errorf("parse %s: %v", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config with all three roles mapped to
// the claude CLI in non-interactive mode.
func DefaultConfig() *Config {
	collab := Collaborator{Cmd: "claude", Args: []string{"--print"}}
	return &Config{
		Version: 1,
		Roles: map[schema.Role]Collaborator{
			schema.RoleArchitect:   collab,
			schema.RoleImplementer: collab,
			schema.RoleAuditor:     collab,
		},
		Pipeline: Pipeline{AutoCommit: true},
	}
}

func (c *Config) validate() error {
	for _, role := range []schema.Role{schema.RoleArchitect, schema.RoleImplementer, schema.RoleAuditor} {
		collab, ok := c.Roles[role]
		if !ok {
			return errorf("role %q is not configured", role)
		}
		if collab.Cmd == "" {
			return errorf("role %q: cmd is required", role)
		}
		if collab.TimeoutSec < 0 {
			return errorf("role %q: timeout_sec must not be negative", role)
		}
		if collab.MaxRetries < 0 {
			return errorf("role %q: max_retries must not be negative", role)
		}
	}
	for role := range c.Roles {
		if !role.Valid() {
			return errorf("unknown role %q", role)
		}
	}
	if c.Pipeline.MaxMinorRetries < 0 {
		return errorf("pipeline: max_minor_retries must not be negative")
	}
	return nil
}
