// Package changes tracks which files changed between a baseline commit and
// HEAD, and answers whether a watch rule's paths were touched.
package changes

import (
	"context"
	"fmt"
	"strings"

	"deployit.dev/deployit/internal/git"
)

// VCS is the subset of the version-control client the tracker needs
type VCS interface {
	Log(ctx context.Context, depth int, fields ...git.LogField) ([]git.Commit, error)
	Diff(ctx context.Context, fromHash, toHash string) ([]git.DiffEntry, error)
}

// MatchMode selects how watch patterns are compared with changed paths
type MatchMode string

const (
	// MatchExact matches a pattern equal to a touched path or to the
	// immediate parent directory of a touched path
	MatchExact MatchMode = "exact"
	// MatchPrefix additionally matches a pattern that is an ancestor directory of a touched path
	MatchPrefix MatchMode = "prefix"
)

// ParseMatchMode converts a configuration value into a MatchMode.
// An empty value selects MatchExact.
func ParseMatchMode(value string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchPrefix:
		return MatchPrefix, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (expected %q or %q)", value, MatchExact, MatchPrefix)
	}
}

// Tracker computes and caches the diff between a baseline commit and HEAD.
//
// Without a baseline every query reports no changes. The diff is computed
// on the first query after SetBaseline and cached until the next SetBaseline.
type Tracker struct {
	vcs  VCS
	mode MatchMode

	baseline string
	head     string
	entries  []git.DiffEntry
	computed bool
}

// NewTracker creates a tracker in MatchExact mode
func NewTracker(vcs VCS) *Tracker {
	return &Tracker{vcs: vcs, mode: MatchExact}
}

// SetMatchMode changes how Matches compares patterns
func (t *Tracker) SetMatchMode(mode MatchMode) {
	if mode == "" {
		mode = MatchExact
	}
	t.mode = mode
}

// MatchMode returns the active match mode
func (t *Tracker) MatchMode() MatchMode {
	return t.mode
}

// SetBaseline records the commit to diff against and drops any cached diff
func (t *Tracker) SetBaseline(hash string) {
	t.baseline = strings.TrimSpace(hash)
	t.head = ""
	t.entries = nil
	t.computed = false
}

// RecordBaseline sets the baseline to the current HEAD commit
func (t *Tracker) RecordBaseline(ctx context.Context) (string, error) {
	hash, err := t.latestHash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to record baseline: %w", err)
	}
	t.SetBaseline(hash)
	return hash, nil
}

// Baseline returns the recorded baseline hash, or "" when unset
func (t *Tracker) Baseline() string {
	return t.baseline
}

// Head returns the HEAD hash the diff was computed against, or "" before the first query
func (t *Tracker) Head() string {
	return t.head
}

func (t *Tracker) latestHash(ctx context.Context) (string, error) {
	commits, err := t.vcs.Log(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("repository has no commits")
	}
	return commits[0].Hash, nil
}

// Entries returns the raw diff entries between baseline and HEAD
func (t *Tracker) Entries(ctx context.Context) ([]git.DiffEntry, error) {
	if t.baseline == "" {
		return nil, nil
	}

	if !t.computed {
		head, err := t.latestHash(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		entries, err := t.vcs.Diff(ctx, t.baseline, head)
		if err != nil {
			return nil, fmt.Errorf("failed to diff %s..%s: %w", t.baseline, head, err)
		}
		t.head = head
		t.entries = entries
		t.computed = true
	}

	return t.entries, nil
}

// ModifiedFiles returns paths with status M, in diff order
func (t *Tracker) ModifiedFiles(ctx context.Context) ([]string, error) {
	return t.filesByStatus(ctx, git.StatusModified)
}

// AddedFiles returns paths with status A, in diff order
func (t *Tracker) AddedFiles(ctx context.Context) ([]string, error) {
	return t.filesByStatus(ctx, git.StatusAdded)
}

// DeletedFiles returns paths with status D, in diff order
func (t *Tracker) DeletedFiles(ctx context.Context) ([]string, error) {
	return t.filesByStatus(ctx, git.StatusDeleted)
}

func (t *Tracker) filesByStatus(ctx context.Context, status git.Status) ([]string, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, entry := range entries {
		if entry.Status == status {
			files = append(files, strings.TrimSpace(entry.Path))
		}
	}
	return files, nil
}

// TouchedPaths returns every changed path regardless of status, normalized
func (t *Tracker) TouchedPaths(ctx context.Context) ([]string, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if path := NormalizePath(entry.Path); path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// TouchedDirectories returns the distinct immediate parent directories of
// touched paths in first-seen order. Files at the repository root have no
// parent directory and contribute nothing.
func (t *Tracker) TouchedDirectories(ctx context.Context) ([]string, error) {
	paths, err := t.TouchedPaths(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	dirs := []string{}
	for _, path := range paths {
		dir := ParentDirectory(path)
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// Matches reports whether any pattern names a touched path or a touched
// directory. Comparison is exact after normalization; in MatchPrefix mode a
// pattern that is an ancestor directory of a touched path also matches.
// No globbing is performed.
func (t *Tracker) Matches(ctx context.Context, patterns ...string) (bool, error) {
	wanted := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if p := NormalizePath(pattern); p != "" {
			wanted = append(wanted, p)
		}
	}
	if len(wanted) == 0 {
		return false, nil
	}

	paths, err := t.TouchedPaths(ctx)
	if err != nil {
		return false, err
	}
	if containsAny(paths, wanted) {
		return true, nil
	}

	dirs, err := t.TouchedDirectories(ctx)
	if err != nil {
		return false, err
	}
	if containsAny(dirs, wanted) {
		return true, nil
	}

	if t.mode == MatchPrefix {
		for _, path := range paths {
			for _, p := range wanted {
				if strings.HasPrefix(path, p+"/") {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

// NormalizePath trims whitespace and leading/trailing slashes
func NormalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// ParentDirectory strips the final segment of a normalized path
func ParentDirectory(path string) string {
	path = NormalizePath(path)
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return NormalizePath(path[:idx])
}

func containsAny(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
