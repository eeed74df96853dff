package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Patterns is a watch rule: a single path or a list of paths
type Patterns []string

// UnmarshalYAML accepts either a scalar or a sequence of scalars
func (p *Patterns) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*p = nil
			return nil
		}
		*p = Patterns{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	default:
		return fmt.Errorf("line %d: watch patterns must be a string or a list of strings", value.Line)
	}
}

// Duration is a time.Duration written as "90s" or "5m" in YAML
type Duration time.Duration

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
