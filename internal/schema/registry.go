// Package schema guards persisted documents with a semantic-version
// compatibility gate. A document is structurally deserialized only after
// its version tag is probed and accepted; same-major versions are
// compatible, everything else is refused.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/junyeong-ai/modmap/internal/graph"
)

// MissingVersionError reports a document without a version tag.
type MissingVersionError struct{}

func (e *MissingVersionError) Error() string {
	return "missing schema version"
}

// VersionParseError reports a version tag that is not valid semver.
type VersionParseError struct {
	Value string
	Err   error
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("invalid schema version %q: %v", e.Value, e.Err)
}

func (e *VersionParseError) Unwrap() error { return e.Err }

// IncompatibleVersionError reports a version tag from a different major
// series than the one this build reads.
type IncompatibleVersionError struct {
	Found         string
	RequiredMajor uint64
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("incompatible schema version: found %s, required major version %d", e.Found, e.RequiredMajor)
}

// Registry checks document version tags against the schema version this
// build was compiled with.
type Registry struct {
	current *semver.Version
}

// NewRegistry returns a registry anchored at the current schema version.
func NewRegistry() *Registry {
	return &Registry{current: semver.MustParse(graph.SchemaVersion)}
}

// Version returns the schema version this registry accepts.
func (r *Registry) Version() *semver.Version { return r.current }

// ValidateVersion checks a version tag for major-series compatibility.
// Minor and patch drift within the same major is accepted, in both
// directions.
func (r *Registry) ValidateVersion(tag string) error {
	if tag == "" {
		return &MissingVersionError{}
	}
	v, err := semver.NewVersion(tag)
	if err != nil {
		return &VersionParseError{Value: tag, Err: err}
	}
	if v.Major() != r.current.Major() {
		return &IncompatibleVersionError{
			Found:         tag,
			RequiredMajor: r.current.Major(),
		}
	}
	return nil
}

// LoadModuleMap deserializes a module map document.
//
// The version tag is probed and validated first; only an accepted
// document is structurally decoded. The decoded graph then has to pass
// integrity checking, since resolving against a graph with dangling
// references is undefined.
func (r *Registry) LoadModuleMap(data []byte) (*graph.ModuleMap, error) {
	var probe struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse module map: %w", err)
	}
	if err := r.ValidateVersion(probe.SchemaVersion); err != nil {
		return nil, err
	}

	var mm graph.ModuleMap
	if err := json.Unmarshal(data, &mm); err != nil {
		return nil, fmt.Errorf("parse module map: %w", err)
	}
	mm.Normalize()
	if err := mm.Validate(); err != nil {
		return nil, fmt.Errorf("module map rejected: %w", err)
	}
	return &mm, nil
}

var defaultRegistry = NewRegistry()

// ValidateVersion checks a version tag against the default registry.
func ValidateVersion(tag string) error {
	return defaultRegistry.ValidateVersion(tag)
}

// LoadModuleMap deserializes and validates a module map document using
// the default registry.
func LoadModuleMap(data []byte) (*graph.ModuleMap, error) {
	return defaultRegistry.LoadModuleMap(data)
}
