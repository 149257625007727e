// Package buildrecord implements the build record: the text, order-
// preserving record of a previous build's compiler identification,
// argument hash, start/end timestamps, and per-input status, described in
// §4.F. It is read at the start of a build (to seed classification, §4.I)
// and written once, at the very end of a successful build.
package buildrecord

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"incdriver/internal/errdefs"
)

// Status is the per-input classification recorded in a build record. Only
// three of the four incremental-planner classifications in §4.I
// (UpToDate, NeedsCascadingBuild, NeedsNonCascadingBuild) are ever written
// to disk; NewlyAdded is a property of an input relative to the *previous*
// record (absent from it entirely) and never appears as a stored sentinel.
type Status int

const (
	UpToDate Status = iota
	NeedsCascadingBuild
	NeedsNonCascadingBuild
)

func (s Status) sentinel() string {
	switch s {
	case NeedsCascadingBuild:
		return "!dirty"
	case NeedsNonCascadingBuild:
		return "!private"
	default:
		return ""
	}
}

// TimePoint is a (seconds, nanoseconds) pair, matching the [sec, nsec]
// on-disk representation exactly rather than round-tripping through
// time.Time's monotonic-reading-stripped RFC3339 form.
type TimePoint struct {
	Sec  int64
	Nsec int64
}

// FromTime converts a time.Time to the wire TimePoint representation.
func FromTime(t time.Time) TimePoint {
	return TimePoint{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

// Time converts a TimePoint back to a time.Time in UTC.
func (tp TimePoint) Time() time.Time {
	return time.Unix(tp.Sec, tp.Nsec).UTC()
}

// Before reports whether tp is strictly earlier than other, matching the
// build record's use in the PossiblyChanged/Unchanged mtime comparison.
func (tp TimePoint) Before(other TimePoint) bool {
	if tp.Sec != other.Sec {
		return tp.Sec < other.Sec
	}
	return tp.Nsec < other.Nsec
}

// InputInfo is one input's recorded status and the mtime it had as of the
// previous build.
type InputInfo struct {
	Status          Status
	PreviousModTime TimePoint
}

// BuildRecord is the previous run's per-input status and argument hash, as
// described in §3/§4.F.
type BuildRecord struct {
	CompilerVersion string
	ArgsHash        string
	StartTime       TimePoint
	EndTime         TimePoint
	Inputs          map[string]InputInfo
}

// New returns an empty, zero-value BuildRecord ready to be populated and
// written at the end of a build.
func New(compilerVersion, argsHash string) *BuildRecord {
	return &BuildRecord{
		CompilerVersion: compilerVersion,
		ArgsHash:        argsHash,
		Inputs:          make(map[string]InputInfo),
	}
}

// Emit renders the record in the canonical text form: sorted input paths,
// one statement per line, matching the format in §4.F exactly.
func (r *BuildRecord) Emit() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "version:         %q\n", r.CompilerVersion)
	fmt.Fprintf(&b, "options:         %q\n", r.ArgsHash)
	fmt.Fprintf(&b, "build_start_time:[%d, %d]\n", r.StartTime.Sec, r.StartTime.Nsec)
	fmt.Fprintf(&b, "build_end_time:  [%d, %d]\n", r.EndTime.Sec, r.EndTime.Nsec)
	b.WriteString("inputs:\n")

	paths := make([]string, 0, len(r.Inputs))
	for p := range r.Inputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		info := r.Inputs[p]
		if sentinel := info.Status.sentinel(); sentinel != "" {
			fmt.Fprintf(&b, "  %q: %s   [%d, %d]\n", p, sentinel, info.PreviousModTime.Sec, info.PreviousModTime.Nsec)
		} else {
			fmt.Fprintf(&b, "  %q: [%d, %d]\n", p, info.PreviousModTime.Sec, info.PreviousModTime.Nsec)
		}
	}
	return []byte(b.String())
}

// Parse reads a build record from its canonical text form. Read is
// permissive about field order and whitespace but rejects any unknown
// status sentinel outright: per §4.F, that condition rejects the *whole*
// record (triggering a non-incremental build) rather than just the
// offending line.
func Parse(data []byte) (*BuildRecord, error) {
	r := &BuildRecord{Inputs: make(map[string]InputInfo)}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	inInputs := false

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !inInputs || !strings.HasPrefix(trimmed, "\"") {
			switch {
			case strings.HasPrefix(trimmed, "version:"):
				v, err := unquoteField(trimmed, "version:")
				if err != nil {
					return nil, err
				}
				r.CompilerVersion = v
			case strings.HasPrefix(trimmed, "options:"):
				v, err := unquoteField(trimmed, "options:")
				if err != nil {
					return nil, err
				}
				r.ArgsHash = v
			case strings.HasPrefix(trimmed, "build_start_time:"):
				tp, err := parseTimePoint(strings.TrimPrefix(trimmed, "build_start_time:"))
				if err != nil {
					return nil, err
				}
				r.StartTime = tp
			case strings.HasPrefix(trimmed, "build_end_time:"):
				tp, err := parseTimePoint(strings.TrimPrefix(trimmed, "build_end_time:"))
				if err != nil {
					return nil, err
				}
				r.EndTime = tp
			case trimmed == "inputs:":
				inInputs = true
			default:
				return nil, errdefs.New(errdefs.ErrGraphParse, "unrecognized build record line: "+line)
			}
			continue
		}

		path, info, err := parseInputLine(trimmed)
		if err != nil {
			return nil, err
		}
		r.Inputs[path] = info
	}
	if err := scanner.Err(); err != nil {
		return nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading build record", err)
	}
	return r, nil
}

func unquoteField(line, prefix string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	v, err := strconv.Unquote(rest)
	if err != nil {
		return "", errdefs.Wrap(errdefs.ErrGraphParse, "malformed quoted field: "+line, err)
	}
	return v, nil
}

func parseTimePoint(rest string) (TimePoint, error) {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "[")
	rest = strings.TrimSuffix(rest, "]")
	parts := strings.Split(rest, ",")
	if len(parts) != 2 {
		return TimePoint{}, errdefs.New(errdefs.ErrGraphParse, "malformed time point: "+rest)
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return TimePoint{}, errdefs.Wrap(errdefs.ErrGraphParse, "malformed time point seconds", err)
	}
	nsec, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return TimePoint{}, errdefs.Wrap(errdefs.ErrGraphParse, "malformed time point nanoseconds", err)
	}
	return TimePoint{Sec: sec, Nsec: nsec}, nil
}

// parseInputLine parses one `"<path>": [!sentinel] [sec, nsec]` line.
// Any status token other than the two recognized sentinels is rejected,
// per §4.F's "unknown sentinels ... cause the whole record to be
// rejected" rule.
func parseInputLine(line string) (string, InputInfo, error) {
	colon := strings.Index(line, "\":")
	if !strings.HasPrefix(line, "\"") || colon < 0 {
		return "", InputInfo{}, errdefs.New(errdefs.ErrGraphParse, "malformed input line: "+line)
	}
	pathLit := line[:colon+1]
	path, err := strconv.Unquote(pathLit)
	if err != nil {
		return "", InputInfo{}, errdefs.Wrap(errdefs.ErrGraphParse, "malformed input path: "+line, err)
	}

	rest := strings.TrimSpace(line[colon+2:])
	status := UpToDate
	switch {
	case strings.HasPrefix(rest, "!dirty"):
		status = NeedsCascadingBuild
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "!dirty"))
	case strings.HasPrefix(rest, "!private"):
		status = NeedsNonCascadingBuild
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "!private"))
	case strings.HasPrefix(rest, "!"):
		return "", InputInfo{}, errdefs.New(errdefs.ErrGraphParse, "unknown input status sentinel: "+rest)
	}

	tp, err := parseTimePoint(rest)
	if err != nil {
		return "", InputInfo{}, err
	}
	return path, InputInfo{Status: status, PreviousModTime: tp}, nil
}

// Equal reports whether two build records have identical semantic content,
// used by the round-trip law in §8 ("parse(emit(r)) = r").
func (r *BuildRecord) Equal(other *BuildRecord) bool {
	if r.CompilerVersion != other.CompilerVersion || r.ArgsHash != other.ArgsHash {
		return false
	}
	if r.StartTime != other.StartTime || r.EndTime != other.EndTime {
		return false
	}
	if len(r.Inputs) != len(other.Inputs) {
		return false
	}
	for p, info := range r.Inputs {
		o, ok := other.Inputs[p]
		if !ok || o != info {
			return false
		}
	}
	return true
}
