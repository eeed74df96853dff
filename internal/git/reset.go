package git

import (
	"context"
	"fmt"
)

// Clean removes untracked files from the working tree
func (c *Client) Clean(ctx context.Context) (string, error) {
	out, err := c.runGit(ctx, "clean", "-f")
	if err != nil {
		return "", fmt.Errorf("failed to remove untracked files: %w", err)
	}
	return out.String(), nil
}

// Reset discards local changes to tracked files
func (c *Client) Reset(ctx context.Context) (string, error) {
	out, err := c.runGit(ctx, "reset", "--hard")
	if err != nil {
		return "", fmt.Errorf("failed to hard reset: %w", err)
	}
	return out.String(), nil
}
