package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/model"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// execCommand allows mocking
var execCommand = exec.CommandContext

// Client reads history with go-git and shells out to git for blame.
type Client struct {
	Dir  string
	repo *gogit.Repository
}

// Open opens the working copy at dir.
func Open(dir string) (*Client, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("repository %s: %w", dir, cerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	return &Client{Dir: dir, repo: repo}, nil
}

// Locate finds the working copy of repo under root, trying <root>/<owner>/<name>
// and then <root>/<name>.
func Locate(root string, repo model.RepoID) (string, error) {
	for _, dir := range []string{
		filepath.Join(root, repo.Owner, repo.Name),
		filepath.Join(root, repo.Name),
	} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("working copy of %s under %s: %w", repo, root, cerrors.ErrNotFound)
}

func (c *Client) commit(rev string) (*object.Commit, error) {
	hash, err := c.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("revision %s: %w", rev, cerrors.ErrNotFound)
	}
	commit, err := c.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("commit %s: %w", rev, cerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read commit %s: %w", rev, err)
	}
	return commit, nil
}

// Commit implements Workspace.
func (c *Client) Commit(ctx context.Context, rev string) (model.CommitAttrs, error) {
	commit, err := c.commit(rev)
	if err != nil {
		return model.CommitAttrs{}, err
	}

	attrs := model.CommitAttrs{
		Hash:        commit.Hash.String(),
		Author:      commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		AuthoredAt:  commit.Author.When,
		Summary:     strings.TrimSpace(strings.SplitN(commit.Message, "\n", 2)[0]),
	}
	for _, p := range commit.ParentHashes {
		attrs.Parents = append(attrs.Parents, p.String())
	}

	stats, err := commit.StatsContext(ctx)
	if err != nil {
		return model.CommitAttrs{}, fmt.Errorf("failed to compute stats of %s: %w", rev, err)
	}
	for _, s := range stats {
		attrs.Insertions += s.Addition
		attrs.Deletions += s.Deletion
	}
	attrs.FilesChanged = len(stats)
	return attrs, nil
}

// Diff implements Workspace. Binary files are left out.
func (c *Client) Diff(ctx context.Context, base, rev string) ([]model.RawFileDiff, error) {
	from, err := c.commit(base)
	if err != nil {
		return nil, err
	}
	to, err := c.commit(rev)
	if err != nil {
		return nil, err
	}
	patch, err := from.PatchContext(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", base, rev, err)
	}

	var out []model.RawFileDiff
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		fromFile, toFile := fp.Files()
		d := model.RawFileDiff{Base: from.Hash.String()}
		if fromFile != nil {
			d.OldPath = fromFile.Path()
			d.Path = fromFile.Path()
		}
		if toFile != nil {
			d.Path = toFile.Path()
		}

		oldLine, newLine := 1, 1
		for _, chunk := range fp.Chunks() {
			lines := splitLines(chunk.Content())
			switch chunk.Type() {
			case fdiff.Equal:
				oldLine += len(lines)
				newLine += len(lines)
			case fdiff.Add:
				for _, l := range lines {
					d.Added = append(d.Added, model.Line{Number: newLine, Content: l})
					newLine++
				}
			case fdiff.Delete:
				for _, l := range lines {
					d.Deleted = append(d.Deleted, model.Line{Number: oldLine, Content: l})
					oldLine++
				}
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// LineCount implements Workspace.
func (c *Client) LineCount(ctx context.Context, rev, path string) (int, error) {
	commit, err := c.commit(rev)
	if err != nil {
		return 0, err
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return 0, fmt.Errorf("%s at %s: %w", path, rev, cerrors.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to read %s at %s: %w", path, rev, err)
	}
	lines, err := file.Lines()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s at %s: %w", path, rev, err)
	}
	return len(lines), nil
}

// Blame implements Workspace. The deadline of ctx bounds the git process.
func (c *Client) Blame(ctx context.Context, rev, path string, start, end int) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, "git", "blame", "--line-porcelain", "-L", fmt.Sprintf("%d,%d", start, end), rev, "--", path)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("git blame %s failed: %w\nStderr: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// splitLines splits chunk content into lines without their terminators.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\n")
	}
	return lines
}
