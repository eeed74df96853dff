// Package actions provides the ordered registry of named pipeline actions.
//
// An action is a named body plus an optional message. The registry keeps
// actions in execution order, supports inserting new actions after or
// before an existing one, and invokes bodies by name.
//
// Key patterns:
//   - Bodies implement Body; plain functions are adapted with Func
//   - A watch rule gates an action on the changes reported by a Gate
//     (normally a changes.Tracker); a gated action returns the Skipped outcome
//   - Errors from bodies and from the gate are returned unchanged
//
// A Registry belongs to a single pipeline run and is not safe for concurrent use.
package actions
