// Package testhelpers provides temporary git repositories and scenes for tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRepo represents a Git repository for testing purposes.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
func NewGitRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}
	return configureRepo(dir)
}

// CloneGitRepo clones source into dir, the way a server checkout tracks its origin.
func CloneGitRepo(source, dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "clone", "--quiet", source, dir)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to clone repo: %w, output: %s", err, string(output))
	}
	return configureRepo(dir)
}

func configureRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}

	// Configure Git user (required for commits)
	if err := repo.runGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	return repo, nil
}

// runGitCommand executes a git command in the repository directory.
// Uses GIT_CONFIG_GLOBAL=/dev/null to avoid reading global config for faster operations.
func (r *GitRepo) runGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s failed: %w, output: %s", strings.Join(args, " "), err, string(output))
	}
	return nil
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	return r.runGitCommand(args...)
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes content to a path relative to the repository root, creating parent directories.
func (r *GitRepo) WriteFile(relPath, content string) error {
	filePath := filepath.Join(r.Dir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// CommitFiles writes every path => content pair and commits them with message.
func (r *GitRepo) CommitFiles(message string, files map[string]string) error {
	for path, content := range files {
		if err := r.WriteFile(path, content); err != nil {
			return err
		}
	}
	if err := r.runGitCommand("add", "--all"); err != nil {
		return err
	}
	return r.runGitCommand("commit", "-m", message)
}

// DeleteFileAndCommit removes a tracked file and commits the removal.
func (r *GitRepo) DeleteFileAndCommit(relPath, message string) error {
	if err := r.runGitCommand("rm", "--quiet", relPath); err != nil {
		return err
	}
	return r.runGitCommand("commit", "-m", message)
}

// CreateChangeAndCommit writes a text file named after prefix and commits it.
func (r *GitRepo) CreateChangeAndCommit(textValue string, prefix string) error {
	return r.CommitFiles(textValue, map[string]string{prefix + "_test.txt": textValue})
}

// CreateAndCheckoutBranch creates and checks out a branch.
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	return r.runGitCommand("checkout", "-b", name)
}

// CheckoutBranch checks out a branch.
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.runGitCommand("checkout", name)
}

// CurrentBranchName returns the name of the checked out branch.
func (r *GitRepo) CurrentBranchName() (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", "--abbrev-ref", "HEAD")
}

// GetCurrentSHA returns the SHA of HEAD.
func (r *GitRepo) GetCurrentSHA() (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", "HEAD")
}

// HasUntrackedFiles reports whether the working tree has untracked files.
func (r *GitRepo) HasUntrackedFiles() (bool, error) {
	output, err := r.RunGitCommandAndGetOutput("ls-files", "--others", "--exclude-standard")
	if err != nil {
		return false, err
	}
	return output != "", nil
}

// CreateBareRemote creates a bare git repository to act as a remote.
// Returns the path to the bare repository.
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	bareDir := r.Dir + "-" + name + ".git"

	cmd := exec.Command("git", "init", "--bare", "-b", "main", bareDir)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to create bare repo: %w", err)
	}

	if err := r.runGitCommand("remote", "add", name, bareDir); err != nil {
		return "", fmt.Errorf("failed to add remote: %w", err)
	}

	return bareDir, nil
}

// PushBranch pushes a branch to a remote.
func (r *GitRepo) PushBranch(remote, branch string) error {
	return r.runGitCommand("push", "--quiet", "-u", remote, branch)
}
