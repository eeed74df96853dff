// Package runtime provides the execution context for deployit commands.
//
// It resolves the repository root, loads the configuration and wires the
// process runner, git client, change tracker, GitHub deployer and history
// store that a command needs.
package runtime
