// Package matrix implements resolution of a compatibility test matrix: the
// cartesian product of a set of declared axes, minus exclusion rules, with
// surviving jobs optionally marked as allowed-to-fail.
package matrix

import (
	"fmt"
	"sort"
	"strings"
)

// An Axis is one independent dimension of the test matrix (an interpreter
// version, a framework requirement, a database backend, ...).  The order of
// Values is significant; it is the enumeration order within that dimension.
type Axis struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// An Assignment maps axis names to values.  A full assignment (one value for
// every declared axis) identifies a job; a partial assignment is used as a
// predicate.
type Assignment map[string]string

// A Rule is a partial Assignment used as a predicate: it matches a job if, for
// every axis the rule constrains, the job's value for that axis equals the
// rule's value.  Axes the rule does not mention are wildcards.
type Rule Assignment

// Matches reports whether every constraint in the rule holds for the given
// (full) assignment.
func (r Rule) Matches(coords Assignment) bool {
	for axis, val := range r {
		if coords[axis] != val {
			return false
		}
	}
	return true
}

// String renders the rule with its axes in sorted order, for error messages
// and log lines.
func (r Rule) String() string {
	axes := make([]string, 0, len(r))
	for axis := range r {
		axes = append(axes, axis)
	}
	sort.Strings(axes)
	parts := make([]string, 0, len(axes))
	for _, axis := range axes {
		parts = append(parts, fmt.Sprintf("%s=%q", axis, r[axis]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// A Job is one concrete combination of axis values selected for execution.
type Job struct {
	// Name is the job's axis values joined with "/", in axis declaration
	// order.
	Name string `json:"name" yaml:"name"`

	Coords Assignment `json:"coords" yaml:"coords"`

	// AllowedToFail marks the job as non-blocking: the execution harness
	// must not treat a failure of this job as fatal to the overall run.
	AllowedToFail bool `json:"allowed_to_fail" yaml:"allowed_to_fail"`
}

// A ConfigurationError indicates that a rule references an axis name or axis
// value that is not declared.  It signals a typo in the configuration rather
// than a logic bug, and aborts resolution.
type ConfigurationError struct {
	Rule  Rule
	Axis  string
	Value string // empty when the axis name itself is undeclared
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("matrix: rule %s references undeclared axis %q",
			e.Rule, e.Axis)
	}
	return fmt.Sprintf("matrix: rule %s references value %q not declared on axis %q",
		e.Rule, e.Value, e.Axis)
}

// CheckRule validates that every axis name the rule constrains is declared,
// and that the constrained value is one of that axis's declared values.
// Returns a *ConfigurationError on violation.
func CheckRule(axes []Axis, rule Rule) error {
	byName := make(map[string]*Axis, len(axes))
	for i := range axes {
		byName[axes[i].Name] = &axes[i]
	}
	for axisName, val := range rule {
		axis, ok := byName[axisName]
		if !ok {
			return &ConfigurationError{Rule: rule, Axis: axisName}
		}
		found := false
		for _, declared := range axis.Values {
			if declared == val {
				found = true
				break
			}
		}
		if !found {
			return &ConfigurationError{Rule: rule, Axis: axisName, Value: val}
		}
	}
	return nil
}

func checkAxes(axes []Axis) error {
	seen := make(map[string]struct{}, len(axes))
	for _, axis := range axes {
		if axis.Name == "" {
			return fmt.Errorf("matrix: axis with empty name")
		}
		if _, dup := seen[axis.Name]; dup {
			return fmt.Errorf("matrix: axis %q declared twice", axis.Name)
		}
		seen[axis.Name] = struct{}{}
	}
	return nil
}

func matchesAny(rules []Rule, coords Assignment) bool {
	for _, rule := range rules {
		if rule.Matches(coords) {
			return true
		}
	}
	return false
}

// Resolve computes the concrete job set for the given axes and rules.
//
// It enumerates the cartesian product of the axis values in axis declaration
// order, with the first axis outermost (the last declared axis varies
// fastest).  Tuples matching any exclusion rule are dropped; surviving tuples
// matching any allow-failure rule get AllowedToFail set.  Exclusion is
// evaluated first, so a tuple can never be both excluded and allow-failed.
//
// Resolve is a pure function of its inputs: no I/O, no shared state, safe to
// call concurrently.  An axis with zero declared values makes the product
// empty.  Rules referencing undeclared axes or values abort with a
// *ConfigurationError.
func Resolve(axes []Axis, exclusions, allowFailures []Rule) ([]Job, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	for _, rule := range exclusions {
		if err := CheckRule(axes, rule); err != nil {
			return nil, err
		}
	}
	for _, rule := range allowFailures {
		if err := CheckRule(axes, rule); err != nil {
			return nil, err
		}
	}
	if len(axes) == 0 {
		return nil, nil
	}
	size := 1
	for _, axis := range axes {
		size *= len(axis.Values)
	}
	if size == 0 {
		return nil, nil
	}

	jobs := make([]Job, 0, size)
	idx := make([]int, len(axes))
	for {
		coords := make(Assignment, len(axes))
		parts := make([]string, len(axes))
		for i, axis := range axes {
			val := axis.Values[idx[i]]
			coords[axis.Name] = val
			parts[i] = val
		}
		if !matchesAny(exclusions, coords) {
			jobs = append(jobs, Job{
				Name:          strings.Join(parts, "/"),
				Coords:        coords,
				AllowedToFail: matchesAny(allowFailures, coords),
			})
		}

		// odometer increment, last axis fastest
		i := len(axes) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(axes[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return jobs, nil
		}
	}
}
