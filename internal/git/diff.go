package git

import (
	"context"
	"strings"
	"unicode"
)

// Status is the change marker of a name-status diff line
type Status string

const (
	// StatusModified marks a modified path
	StatusModified Status = "M"
	// StatusAdded marks an added path
	StatusAdded Status = "A"
	// StatusDeleted marks a deleted path
	StatusDeleted Status = "D"
)

// DiffEntry is one line of `git diff --name-status`
type DiffEntry struct {
	Status Status
	Path   string
}

// Diff returns the name-status entries between two revisions in diff order.
// Renames are reported as a deletion plus an addition. Output is read
// NUL-separated so paths arrive unquoted, whatever core.quotePath says.
func (c *Client) Diff(ctx context.Context, fromHash, toHash string) ([]DiffEntry, error) {
	out, err := c.readGit(ctx, "diff", "--name-status", "--no-renames", "-z", fromHash, toHash)
	if err != nil {
		return nil, err
	}
	return ParseNameStatusZ(out.Stdout), nil
}

// ParseNameStatusZ parses `git diff --name-status -z` output, where status
// markers and paths alternate as NUL-terminated fields
func ParseNameStatusZ(data string) []DiffEntry {
	fields := strings.Split(strings.TrimSuffix(data, "\x00"), "\x00")
	entries := make([]DiffEntry, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		status := strings.TrimSpace(fields[i])
		path := fields[i+1]
		if status == "" || path == "" {
			continue
		}
		entries = append(entries, DiffEntry{Status: Status(status[:1]), Path: path})
	}
	return entries
}

// ParseNameStatus parses name-status lines, skipping lines without a path
func ParseNameStatus(lines []string) []DiffEntry {
	entries := make([]DiffEntry, 0, len(lines))
	for _, line := range lines {
		if entry, ok := ParseNameStatusLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// ParseNameStatusLine parses "<status><whitespace><path>". The leading
// non-space run is the status marker; its first letter is the status
// (so "R100" reads as "R"). The rest, trimmed, is the path.
func ParseNameStatusLine(line string) (DiffEntry, bool) {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx <= 0 {
		return DiffEntry{}, false
	}

	path := strings.TrimSpace(line[idx:])
	if path == "" {
		return DiffEntry{}, false
	}

	return DiffEntry{
		Status: Status(line[:1]),
		Path:   path,
	}, true
}
