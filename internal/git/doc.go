// Package git provides the version-control client used by release pipelines.
//
// Reads (log, HEAD, current branch, commit search) go through go-git.
// Mutating operations (clean, reset, checkout, pull) and the name-status
// diff are executed as git command lines through a shell.Runner, so they
// share its timeout, dry-run and error reporting.
//
// This package should be the only place where git commands are built.
package git
