package actions

import (
	"context"
	"fmt"
	"strings"
)

// Body is the invocable part of an action
type Body interface {
	Invoke(ctx context.Context, args ...any) (any, error)
}

// Func adapts an ordinary function to Body
type Func func(ctx context.Context, args ...any) (any, error)

// Invoke calls f(ctx, args...)
func (f Func) Invoke(ctx context.Context, args ...any) (any, error) {
	return f(ctx, args...)
}

// Gate decides whether any of the watched patterns changed
type Gate interface {
	Matches(ctx context.Context, patterns ...string) (bool, error)
}

// Outcome is the result of invoking an action by name
type Outcome struct {
	// Value is whatever the body returned; nil when the body returned nothing
	Value any
	// Skipped is true when a watch rule suppressed the body
	Skipped bool
}

// Skipped is the outcome of an action suppressed by its watch rule
var Skipped = Outcome{Skipped: true}

// String renders the body's value for display; skipped and empty outcomes render as ""
func (o Outcome) String() string {
	if o.Skipped || o.Value == nil {
		return ""
	}
	switch v := o.Value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
