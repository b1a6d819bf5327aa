// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Repo is a git repository inside t.TempDir().
type Repo struct {
	t    *testing.T
	Dir  string
	tick int
}

// Author identifies who makes a commit.
type Author struct {
	Name  string
	Email string
}

// New initializes a repository, skipping the test when git is not installed.
func New(t *testing.T) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "-q")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "user.name", "Test User")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and returns its trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	return r.gitEnv(nil, args...)
}

func (r *Repo) gitEnv(env []string, args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		r.t.Fatalf("git %v failed: %v\nStderr: %s", args, err, stderr)
	}
	return strings.TrimSpace(string(out))
}

// Write stores content at path relative to the repository root.
func (r *Repo) Write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		r.t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		r.t.Fatalf("failed to write file: %v", err)
	}
}

// Commit writes files, stages everything and commits as author. Each commit is
// dated one day after the previous one, starting at 2020-01-01 UTC.
func (r *Repo) Commit(author Author, msg string, files map[string]string) string {
	r.t.Helper()
	for path, content := range files {
		r.Write(path, content)
	}
	r.Git("add", "-A")

	date := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, r.tick).Format(time.RFC3339)
	r.tick++
	r.gitEnv([]string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_NAME=" + author.Name,
		"GIT_COMMITTER_EMAIL=" + author.Email,
		"GIT_COMMITTER_DATE=" + date,
	}, "commit", "-q", "--allow-empty", "-m", msg)
	return r.Head()
}

// Head returns the hash of HEAD.
func (r *Repo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

// Lines joins numbered lines "<prefix> 1".."<prefix> n" with newlines.
func Lines(prefix string, n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%s %d\n", prefix, i)
	}
	return b.String()
}
