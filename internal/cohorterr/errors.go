// Package cohorterr defines the error taxonomy shared by the parser, the
// vocabulary compiler, the builders, and the pipeline.
//
// Each error kind carries machine-readable fields; the CLI maps kinds to
// distinct exit codes via errors.As.
package cohorterr

import "fmt"

// ParseError reports a JSON shape or enum-value problem at a specific path.
type ParseError struct {
	Path     string
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s", e.Path, e.Expected)
}

// UnsupportedCriterionError is returned when no builder exists for a
// criterion kind.
type UnsupportedCriterionError struct {
	Kind string
}

func (e *UnsupportedCriterionError) Error() string {
	return fmt.Sprintf("unsupported criterion kind: %s", e.Kind)
}

// MissingCodesetError is returned when a criterion references a codeset id
// that is not declared in the expression's concept sets.
type MissingCodesetError struct {
	CodesetID int64
}

func (e *MissingCodesetError) Error() string {
	return fmt.Sprintf("codeset %d referenced but not declared in concept sets", e.CodesetID)
}

// MissingTableError is returned when the backend cannot resolve a required
// CDM or vocabulary table.
type MissingTableError struct {
	Name   string
	Schema string
}

func (e *MissingTableError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("required table %s not found", e.Name)
	}
	return fmt.Sprintf("required table %s.%s not found", e.Schema, e.Name)
}

// BackendError wraps a backend compile or execution failure with the
// pipeline stage it occurred in.
type BackendError struct {
	Stage string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend failure during %s: %v", e.Stage, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// InvalidExpressionError reports a semantically impossible combination in an
// otherwise well-formed expression (e.g. a custom era strategy without a drug
// codeset id, or a between operator with no extent).
type InvalidExpressionError struct {
	Reason string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid cohort expression: %s", e.Reason)
}
