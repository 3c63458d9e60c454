package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) *Client {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	c := New(dir)
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		if _, err := c.git(args...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	return c
}

func TestIsRepo(t *testing.T) {
	requireGit(t)
	c := initRepo(t)
	if !c.IsRepo() {
		t.Error("IsRepo = false inside a repository")
	}
}

func TestCommitAll(t *testing.T) {
	c := initRepo(t)

	// Nothing to commit yet.
	committed, err := c.CommitAll("initial")
	if err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if committed {
		t.Error("committed an empty tree")
	}

	if err := os.WriteFile(filepath.Join(c.workDir, "a.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	committed, err = c.CommitAll("feat: TASK-001")
	if err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if !committed {
		t.Error("expected a commit for the new file")
	}
	if c.HasChanges() {
		t.Error("working tree dirty after commit")
	}

	out, err := c.git("log", "--format=%s", "-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := out; got != "feat: TASK-001\n" {
		t.Errorf("last commit subject = %q", got)
	}
}

func TestDiff(t *testing.T) {
	c := initRepo(t)
	if err := os.WriteFile(filepath.Join(c.workDir, "a.txt"), []byte("v1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CommitAll("base"); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(c.workDir, "a.txt"), []byte("v2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	diff, err := c.Diff()
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff == "" {
		t.Error("expected a non-empty diff for a modified file")
	}
}
