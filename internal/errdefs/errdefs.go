// Package errdefs defines the structured error taxonomy the planner and its
// collaborators report through, rather than ad-hoc wrapped errors.
package errdefs

import "fmt"

// ErrorCode enumerates the error kinds named in the error-handling design:
// graph parse errors, invariant violations, missing inputs, option-hash
// mismatches, scanner errors, CAS misses, and stale external dependencies.
type ErrorCode string

const (
	// ErrGraphParse is raised by the SFDG reader or MDG deserializer on a
	// malformed block, unknown mandatory record, version mismatch, or
	// out-of-range string-pool index. Recovery: discard the offending
	// graph and cold-start for it.
	ErrGraphParse ErrorCode = "GRAPH_PARSE"
	// ErrInvariantViolation is raised by verify() or by the integration
	// algorithm when an MDG invariant fails to hold. Recovery: same as
	// ErrGraphParse, plus a warning remark.
	ErrInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrMissingInput means a declared input could not be stat'd. Always
	// fatal.
	ErrMissingInput ErrorCode = "MISSING_INPUT"
	// ErrArgsHashMismatch means the current argument hash does not match
	// the build record's. Not an error: incremental mode is disabled.
	ErrArgsHashMismatch ErrorCode = "ARGS_HASH_MISMATCH"
	// ErrMissingBuildRecord means no usable build record was found. Not
	// an error: incremental mode is disabled but MDG priors are kept.
	ErrMissingBuildRecord ErrorCode = "MISSING_BUILD_RECORD"
	// ErrScannerFailure means the IMDG scanner query failed, including
	// re-entry with a mismatched CAS path. Always fatal.
	ErrScannerFailure ErrorCode = "SCANNER_FAILURE"
	// ErrCASMiss means the content-addressed store had no entry for a
	// requested key. Not an error: the corresponding module or
	// compilation is scheduled for (re)build.
	ErrCASMiss ErrorCode = "CAS_MISS"
	// ErrExternalStale means an external dependency is missing or newer
	// than its last recorded fingerprint. Never fatal: triggers
	// invalidation.
	ErrExternalStale ErrorCode = "EXTERNAL_STALE"
)

// fatalByDefault records, for each code, whether the planner treats it as
// fatal absent any more specific handling at the call site.
var fatalByDefault = map[ErrorCode]bool{
	ErrGraphParse:         false,
	ErrInvariantViolation: false,
	ErrMissingInput:       true,
	ErrArgsHashMismatch:   false,
	ErrMissingBuildRecord: false,
	ErrScannerFailure:     true,
	ErrCASMiss:            false,
	ErrExternalStale:      false,
}

// Drilldown points at the offending location for a parse or invariant
// error: a byte offset into a record stream, a node key, or similar.
type Drilldown struct {
	Label string      `json:"label"`
	Value interface{} `json:"value,omitempty"`
}

// DriverError is the structured error type returned across component
// boundaries (D, E, G, H, I, J) instead of bare fmt.Errorf chains.
type DriverError struct {
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Drilldowns []Drilldown `json:"drilldowns,omitempty"`
	cause      error
}

// New creates a DriverError with no underlying cause.
func New(code ErrorCode, message string) *DriverError {
	return &DriverError{Code: code, Message: message}
}

// Wrap creates a DriverError that preserves cause for errors.Unwrap/errors.As.
func Wrap(code ErrorCode, message string, cause error) *DriverError {
	return &DriverError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DriverError) Unwrap() error {
	return e.cause
}

// WithDrilldown attaches a location/context pointer to the error and
// returns it for chaining.
func (e *DriverError) WithDrilldown(label string, value interface{}) *DriverError {
	e.Drilldowns = append(e.Drilldowns, Drilldown{Label: label, Value: value})
	return e
}

// Fatal reports whether the planner's top-level loop must abort the build
// on this error, per the error-handling policy table. A caller that knows
// better about its own situation (e.g. a scanner error during a
// best-effort debug dump) may still choose to ignore this.
func (e *DriverError) Fatal() bool {
	return fatalByDefault[e.Code]
}

// IsCode reports whether err is a *DriverError with the given code,
// unwrapping through any wrapping errors.
func IsCode(err error, code ErrorCode) bool {
	var de *DriverError
	for err != nil {
		if d, ok := err.(*DriverError); ok {
			de = d
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return de != nil && de.Code == code
}
