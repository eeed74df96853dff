package git

import (
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// openRepository opens the repository containing path.
// A fresh handle is opened per call so refs and packs written by git
// command lines (pull, reset) are always visible.
func openRepository(path string) (*gogit.Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// GetRepoRoot returns the root directory of the Git repository containing dir
func GetRepoRoot(dir string) (string, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}

// CurrentBranch returns the branch HEAD points to
func (c *Client) CurrentBranch() (string, error) {
	repo, err := openRepository(c.dir)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}

	return head.Name().Short(), nil
}
