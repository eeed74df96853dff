package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"deployit.dev/deployit/internal/shell"
)

// Command is an action body that runs a command line. Invocation arguments
// are quoted and appended to the line.
type Command struct {
	Runner shell.Runner
	Line   string
}

// Invoke runs the command and returns its stdout
func (c Command) Invoke(ctx context.Context, args ...any) (any, error) {
	line := c.Line
	if len(args) > 0 {
		extra := make([]string, len(args))
		for i, arg := range args {
			extra[i] = fmt.Sprint(arg)
		}
		line = strings.TrimSpace(line + " " + shellquote.Join(extra...))
	}

	out, err := c.Runner.Execute(ctx, line)
	if err != nil {
		return nil, err
	}
	return out.String(), nil
}

// joinCommand appends a subcommand to a configured tool command line
func joinCommand(tool string, parts ...string) string {
	return strings.TrimSpace(tool + " " + strings.Join(parts, " "))
}
