// Package compiler implements the Pipeline Compiler (C4): deterministic
// compilation of a pipeline graph into an application manifest plus a
// sibling providers manifest, orchestrating the node and provider builder
// registries in pkg/manifest/builders.
package compiler

import "fmt"

// CompileErrorKind enumerates the ways compilation can fail. Every kind maps
// to an aborted compile: no partial manifest is ever returned alongside an error.
type CompileErrorKind string

const (
	MissingDependency CompileErrorKind = "missingDependency"
	UnknownKind       CompileErrorKind = "unknownKind"
	CycleDetected     CompileErrorKind = "cycleDetected"
	ConflictingName   CompileErrorKind = "conflictingName"
)

// CompileError is returned to the deploy caller; it never leaves a partial
// manifest behind.
type CompileError struct {
	Kind   CompileErrorKind
	Detail string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("CompileError{%s}: %s", e.Kind, e.Detail)
}

func newCompileError(kind CompileErrorKind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
