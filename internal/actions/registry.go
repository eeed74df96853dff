package actions

import (
	"context"
	"slices"

	deployerrors "deployit.dev/deployit/internal/errors"
)

// OptionFailedActions is the run option holding the names of actions that
// have failed so far in the run, as a []string
const OptionFailedActions = "failed_actions"

// placement is a pending relative-position directive for the next Register
type placement struct {
	anchor string
	before bool
}

// Registry is an ordered set of named actions
type Registry struct {
	order    []string
	bodies   map[string]Body
	messages map[string]string
	watch    map[string][]string
	forced   map[string]bool
	options  map[string]any
	gate     Gate
	pending  *placement
}

// NewRegistry creates an empty registry. gate answers watch rules; a nil
// gate reports no changes, so every watched action is skipped.
func NewRegistry(gate Gate) *Registry {
	return &Registry{
		bodies:   make(map[string]Body),
		messages: make(map[string]string),
		watch:    make(map[string][]string),
		forced:   make(map[string]bool),
		options:  make(map[string]any),
		gate:     gate,
	}
}

// After makes the next Register insert immediately after name.
// It is ignored when name is not registered.
func (r *Registry) After(name string) *Registry {
	if r.Has(name) {
		r.pending = &placement{anchor: name}
	}
	return r
}

// Before makes the next Register insert immediately before name.
// It is ignored when name is not registered.
func (r *Registry) Before(name string) *Registry {
	if r.Has(name) {
		r.pending = &placement{anchor: name, before: true}
	}
	return r
}

// Register adds an action. The pending After/Before directive, if any, decides
// its position and is consumed whether or not registration succeeds.
func (r *Registry) Register(name string, body Body, message string) error {
	p := r.pending
	r.pending = nil

	if name == "" {
		return &deployerrors.EmptyNameError{}
	}
	if r.Has(name) {
		return deployerrors.NewDuplicateActionError(name)
	}
	if body == nil {
		return deployerrors.NewNilBodyError(name)
	}

	r.insert(name, p)
	r.bodies[name] = body
	if message != "" {
		r.messages[name] = message
	}
	return nil
}

// RegisterFunc is Register for a plain function
func (r *Registry) RegisterFunc(name string, fn Func, message string) error {
	if fn == nil {
		return r.Register(name, nil, message)
	}
	return r.Register(name, fn, message)
}

// RegisterAfter registers name immediately after anchor, or at the end when anchor is absent
func (r *Registry) RegisterAfter(anchor, name string, body Body, message string) error {
	r.pending = nil
	return r.After(anchor).Register(name, body, message)
}

// RegisterBefore registers name immediately before anchor, or at the end when anchor is absent
func (r *Registry) RegisterBefore(anchor, name string, body Body, message string) error {
	r.pending = nil
	return r.Before(anchor).Register(name, body, message)
}

// insert places name according to p. After X goes to index(X)+1 and
// before X to index(X), which is 0 when X is first. An anchor that has been
// deleted since the directive was set, or no directive, appends.
func (r *Registry) insert(name string, p *placement) {
	idx := len(r.order)
	if p != nil {
		if pos := slices.Index(r.order, p.anchor); pos >= 0 {
			idx = pos + 1
			if p.before {
				idx = pos
			}
		}
	}
	r.order = slices.Insert(r.order, idx, name)
}

// Delete removes an action with its message, watch rule and force flag.
// Deleting an unknown name is a no-op.
func (r *Registry) Delete(name string) {
	idx := slices.Index(r.order, name)
	if idx < 0 {
		return
	}
	r.order = slices.Delete(r.order, idx, idx+1)
	delete(r.bodies, name)
	delete(r.messages, name)
	delete(r.watch, name)
	delete(r.forced, name)
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.bodies[name]
	return ok
}

// List returns action names in execution order
func (r *Registry) List() []string {
	return slices.Clone(r.order)
}

// Len returns the number of registered actions
func (r *Registry) Len() int {
	return len(r.order)
}

// Message returns the action's message, or "" when it has none
func (r *Registry) Message(name string) string {
	return r.messages[name]
}

// SetWatch replaces all watch rules
func (r *Registry) SetWatch(watch map[string][]string) {
	r.watch = make(map[string][]string, len(watch))
	for name, patterns := range watch {
		if len(patterns) > 0 {
			r.watch[name] = slices.Clone(patterns)
		}
	}
}

// Watch sets the watch rule for one action, replacing any existing rule.
// Without patterns the action becomes unwatched.
func (r *Registry) Watch(name string, patterns ...string) {
	if len(patterns) == 0 {
		delete(r.watch, name)
		return
	}
	r.watch[name] = slices.Clone(patterns)
}

// WatchRule returns the patterns watched for name
func (r *Registry) WatchRule(name string) ([]string, bool) {
	patterns, ok := r.watch[name]
	return slices.Clone(patterns), ok
}

// Force makes the named actions run regardless of their watch rules
func (r *Registry) Force(names ...string) {
	for _, name := range names {
		r.forced[name] = true
	}
}

// IsForced reports whether name bypasses its watch rule
func (r *Registry) IsForced(name string) bool {
	return r.forced[name]
}

// SetOptions replaces the run options visible to bodies through Option
func (r *Registry) SetOptions(options map[string]any) {
	r.options = make(map[string]any, len(options))
	for k, v := range options {
		r.options[k] = v
	}
}

// SetOption sets a single run option
func (r *Registry) SetOption(name string, value any) {
	r.options[name] = value
}

// Options returns a copy of the run options
func (r *Registry) Options() map[string]any {
	out := make(map[string]any, len(r.options))
	for k, v := range r.options {
		out[k] = v
	}
	return out
}

// Option returns a single run option
func (r *Registry) Option(name string) (any, bool) {
	v, ok := r.options[name]
	return v, ok
}

// WouldRun reports whether Invoke would run the body of name rather than skip it
func (r *Registry) WouldRun(ctx context.Context, name string) (bool, error) {
	if !r.Has(name) {
		return false, deployerrors.NewUnknownActionError(name)
	}

	patterns, watched := r.watch[name]
	if !watched || r.forced[name] {
		return true, nil
	}
	if r.gate == nil {
		return false, nil
	}
	return r.gate.Matches(ctx, patterns...)
}

// Invoke runs the action registered under name with args. A watched action
// whose patterns did not change returns Skipped without running the body.
// Errors from the gate and the body are returned unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, args ...any) (Outcome, error) {
	body, ok := r.bodies[name]
	if !ok {
		return Outcome{}, deployerrors.NewUnknownActionError(name)
	}

	run, err := r.WouldRun(ctx, name)
	if err != nil {
		return Outcome{}, err
	}
	if !run {
		return Skipped, nil
	}

	value, err := body.Invoke(ctx, args...)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Value: value}, nil
}
