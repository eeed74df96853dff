package git

import (
	"context"
	"fmt"
)

// Checkout switches the working tree to branch, defaulting to DefaultBranch
func (c *Client) Checkout(ctx context.Context, branch string) (string, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	out, err := c.runGit(ctx, "checkout", branch)
	if err != nil {
		return "", fmt.Errorf("failed to checkout branch %s: %w", branch, err)
	}
	return out.String(), nil
}

// Pull fetches branch from remote and merges it into the current branch
func (c *Client) Pull(ctx context.Context, remote, branch string) (string, error) {
	if remote == "" {
		remote = DefaultRemote
	}
	if branch == "" {
		branch = DefaultBranch
	}
	out, err := c.runGit(ctx, "pull", remote, branch)
	if err != nil {
		return "", fmt.Errorf("failed to pull %s/%s: %w", remote, branch, err)
	}
	return out.String(), nil
}
