// Package report implements the reporter: a structured remark stream keyed
// by lifecycle event, used both for "--show-incremental"-style operator
// output and for tests asserting on exact remark text (§4.K, §6 "the exact
// textual phrasing is an external contract"). It sits on top of
// internal/logging's Remark method, giving each event a typed constructor
// so call sites can't typo an event name or forget a required field.
package report

import "incdriver/internal/logging"

// Event names the lifecycle events named in §4.K. The vocabulary itself
// lives on logging.Logger (so a typo'd event name fails to compile at the
// Remark call site); report re-exports it here so callers of this package
// never need to import logging just to name an event.
type Event = logging.Event

const (
	EventSchedulingNew         = logging.EventSchedulingNew
	EventQueuingInitial        = logging.EventQueuingInitial
	EventSkipping              = logging.EventSkipping
	EventReadingDeps           = logging.EventReadingDeps
	EventFingerprintChanged    = logging.EventFingerprintChanged
	EventInvalidatedExternally = logging.EventInvalidatedExternally
	EventDisablingIncremental  = logging.EventDisablingIncremental
	EventDiscardingPriors      = logging.EventDiscardingPriors
	EventModuleRebuild         = logging.EventModuleRebuild
	EventOldestOutputCurrent   = logging.EventOldestOutputCurrent
)

// Reporter records remarks against a *logging.Logger. A nil Reporter is
// valid and every method is a silent no-op, so components that are not
// handed one (a test constructing a fixture without needing remark
// assertions) don't need a sentinel "no-op logger" allocation.
type Reporter struct {
	logger *logging.Logger
	sink   []Remark
}

// Remark is one recorded lifecycle event, captured in order for tests that
// assert on the exact sequence (§6).
type Remark struct {
	Event  Event
	Source string
	Reason string
	Fields map[string]interface{}
}

// New returns a Reporter that forwards to logger (which may be nil) and
// also accumulates Remarks in-memory for test assertions via Remarks().
func New(logger *logging.Logger) *Reporter {
	return &Reporter{logger: logger}
}

func (r *Reporter) emit(event Event, source, reason string, fields map[string]interface{}) {
	if r == nil {
		return
	}
	merged := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	if source != "" {
		merged["source"] = source
	}
	if reason != "" {
		merged["reason"] = reason
	}
	r.sink = append(r.sink, Remark{Event: event, Source: source, Reason: reason, Fields: fields})
	if r.logger != nil {
		r.logger.Remark(event, merged)
	}
}

// SchedulingNew records that a newly-added input was scheduled.
func (r *Reporter) SchedulingNew(source string) {
	r.emit(EventSchedulingNew, source, "new input", nil)
}

// QueuingInitial records that source was placed in the first wave.
func (r *Reporter) QueuingInitial(source, reason string) {
	r.emit(EventQueuingInitial, source, reason, nil)
}

// Skipping records that source was classified as skippable.
func (r *Reporter) Skipping(source string) {
	r.emit(EventSkipping, source, "up to date", nil)
}

// ReadingDeps records that the SFDG for source is about to be integrated.
func (r *Reporter) ReadingDeps(source string) {
	r.emit(EventReadingDeps, source, "", nil)
}

// FingerprintChanged records a changed-or-added definition discovered
// during integration, naming its designator for debugging.
func (r *Reporter) FingerprintChanged(source, designator string) {
	r.emit(EventFingerprintChanged, source, "", map[string]interface{}{"designator": designator})
}

// InvalidatedExternally records that an ExternalDepend node's fingerprint
// changed and its successors were invalidated.
func (r *Reporter) InvalidatedExternally(path string) {
	r.emit(EventInvalidatedExternally, path, "", nil)
}

// DisablingIncremental records a pre-flight gate failure (§4.I), naming the
// specific gate that failed so operator output can explain exactly why a
// build went non-incremental — e.g. "different arguments were passed" for
// scenario 5 in §8.
func (r *Reporter) DisablingIncremental(reason string) {
	r.emit(EventDisablingIncremental, "", reason, nil)
}

// DiscardingPriors records an MDG priors version mismatch (§4.E
// serialization: "a version mismatch ... causes the prior to be discarded
// and a remark emitted").
func (r *Reporter) DiscardingPriors(reason string) {
	r.emit(EventDiscardingPriors, "", reason, nil)
}

// ModuleRebuild records that an explicit module build job was scheduled
// for module, naming the trigger (missing CAS entry, stale input, or
// transitive invalidation).
func (r *Reporter) ModuleRebuild(module, reason string) {
	r.emit(EventModuleRebuild, module, reason, nil)
}

// OldestOutputCurrent records the "oldest output is current" remark (§4.I
// "Post-compile") emitted when link/autolink are skipped because every
// compile in the build was skipped and every post-compile output exists.
func (r *Reporter) OldestOutputCurrent() {
	r.emit(EventOldestOutputCurrent, "", "oldest output is current", nil)
}

// Remarks returns every remark recorded so far, in emission order.
func (r *Reporter) Remarks() []Remark {
	if r == nil {
		return nil
	}
	return r.sink
}

// HasEvent reports whether any recorded remark matches event.
func (r *Reporter) HasEvent(event Event) bool {
	for _, rem := range r.Remarks() {
		if rem.Event == event {
			return true
		}
	}
	return false
}
