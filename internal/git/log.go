package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	deployerrors "deployit.dev/deployit/internal/errors"
)

// DefaultLogDepth is how many commits are scanned when searching history
const DefaultLogDepth = 10

// LogField selects optional commit information returned by Log
type LogField string

const (
	// FieldMessage requests the full commit message
	FieldMessage LogField = "message"
	// FieldAuthor requests the author name
	FieldAuthor LogField = "author"
	// FieldEmail requests the author email
	FieldEmail LogField = "email"
	// FieldDate requests the author date
	FieldDate LogField = "date"
)

// AllLogFields lists every optional field
var AllLogFields = []LogField{FieldMessage, FieldAuthor, FieldEmail, FieldDate}

// Commit is a single log entry. Only the fields requested from Log are set.
type Commit struct {
	Hash    string
	Message string
	Author  string
	Email   string
	Date    time.Time
}

// ShortHash returns the first seven characters of the hash
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Subject returns the first line of the message
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return strings.TrimSpace(subject)
}

// Log returns the most recent depth commits reachable from HEAD, newest first.
// A depth below one is treated as one.
func (c *Client) Log(_ context.Context, depth int, fields ...LogField) ([]Commit, error) {
	if depth < 1 {
		depth = 1
	}

	repo, err := openRepository(c.dir)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, deployerrors.ErrNoCommits
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	commits := make([]Commit, 0, depth)
	err = iter.ForEach(func(commit *object.Commit) error {
		if len(commits) >= depth {
			return storer.ErrStop
		}
		commits = append(commits, toCommit(commit, fields))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return commits, nil
}

func toCommit(commit *object.Commit, fields []LogField) Commit {
	out := Commit{Hash: commit.Hash.String()}
	for _, field := range fields {
		switch field {
		case FieldMessage:
			out.Message = strings.TrimRight(commit.Message, "\n")
		case FieldAuthor:
			out.Author = commit.Author.Name
		case FieldEmail:
			out.Email = commit.Author.Email
		case FieldDate:
			out.Date = commit.Author.When
		}
	}
	return out
}

// HeadHash returns the hash of the most recent commit
func (c *Client) HeadHash(ctx context.Context) (string, error) {
	commits, err := c.Log(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(commits) == 0 {
		return "", deployerrors.ErrNoCommits
	}
	return commits[0].Hash, nil
}

// FindCommit returns the newest commit among the last depth commits whose
// message contains substring.
func (c *Client) FindCommit(ctx context.Context, substring string, depth int) (*Commit, error) {
	commits, err := c.Log(ctx, depth, AllLogFields...)
	if err != nil {
		return nil, err
	}

	for _, commit := range commits {
		if strings.Contains(commit.Message, substring) {
			found := commit
			return &found, nil
		}
	}

	return nil, fmt.Errorf("%w: no commit message contains %q in the last %d commits", deployerrors.ErrCommitNotFound, substring, len(commits))
}
