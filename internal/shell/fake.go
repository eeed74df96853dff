package shell

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a Runner for tests. It records every command line and
// answers from scripted responses keyed by command prefix.
type FakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	commands  []string
}

type fakeResponse struct {
	prefix string
	stdout string
	err    error
}

// NewFakeRunner creates an empty FakeRunner. Unscripted commands succeed with no output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On scripts the response for commands starting with prefix. Later calls take precedence.
func (f *FakeRunner) On(prefix, stdout string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{prefix: prefix, stdout: stdout, err: err})
	return f
}

// Execute records the command and returns the scripted response
func (f *FakeRunner) Execute(_ context.Context, commandLine string) (*Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, commandLine)

	for i := len(f.responses) - 1; i >= 0; i-- {
		resp := f.responses[i]
		if strings.HasPrefix(commandLine, resp.prefix) {
			if resp.err != nil {
				return nil, resp.err
			}
			return &Output{Command: commandLine, Stdout: resp.stdout}, nil
		}
	}
	return &Output{Command: commandLine}, nil
}

// Commands returns the recorded command lines in execution order
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}
