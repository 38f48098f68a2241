package pep440

import (
	"fmt"
	"regexp"
	"strings"
)

// A Requirement is a distribution name plus a version specifier, as written in
// a requirements file or a tox deps line:
//
//	django>=1.11,<2.0
//	django==2.1b1
//	pytest
//
// This is the subset of PEP 508 that a test matrix uses; extras, environment
// markers, and direct URL references are not supported.
type Requirement struct {
	Name      string
	Specifier Specifier
}

// PEP 508: names must match this regex, case-insensitively.
var reRequirementName = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)

// ParseRequirement parses a requirement string.  An empty specifier (a bare
// distribution name) is valid and matches every version.
func ParseRequirement(str string) (*Requirement, error) {
	trimmed := strings.TrimSpace(str)
	name := reRequirementName.FindString(trimmed)
	if name == "" {
		return nil, fmt.Errorf("pep440.ParseRequirement: no distribution name in %q", str)
	}
	spec, err := ParseSpecifier(trimmed[len(name):])
	if err != nil {
		return nil, fmt.Errorf("pep440.ParseRequirement: %q: %w", str, err)
	}
	return &Requirement{Name: name, Specifier: spec}, nil
}

func (req Requirement) String() string {
	return req.Name + req.Specifier.String()
}
