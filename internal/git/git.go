// Package git is the version-control collaborator: it commits (and
// optionally pushes) an approved change set. The orchestrator treats it
// as best effort; a commit failure never rolls back an approval.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Client runs git commands in a fixed working directory.
type Client struct {
	workDir string
}

// New creates a client for the given working directory.
func New(workDir string) *Client {
	return &Client{workDir: workDir}
}

// IsRepo checks if the working directory is inside a git repository.
func (c *Client) IsRepo() bool {
	out, err := c.git("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// HasChanges reports whether there are staged or unstaged changes.
func (c *Client) HasChanges() bool {
	out, err := c.git("status", "--porcelain")
	return err == nil && strings.TrimSpace(out) != ""
}

// CommitAll stages everything and commits with the given message.
// Returns false without error when there is nothing to commit.
func (c *Client) CommitAll(message string) (bool, error) {
	if !c.HasChanges() {
		return false, nil
	}
	if _, err := c.git("add", "-A"); err != nil {
		return false, fmt.Errorf("git add: %w", err)
	}
	if _, err := c.git("commit", "-m", message); err != nil {
		return false, fmt.Errorf("git commit: %w", err)
	}
	return true, nil
}

// Push pushes the current branch to its upstream.
func (c *Client) Push() error {
	if _, err := c.git("push"); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// Diff returns the combined staged and unstaged diff against HEAD.
func (c *Client) Diff() (string, error) {
	return c.git("diff", "HEAD")
}

func (c *Client) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
