// Package buildjob defines Job, the unit of work the planner (I) and the
// explicit module build planner (H) emit for an external executor to run:
// compile, module-build, link, and autolink-extract jobs. Job carries a
// uuid-derived ID, mirroring the teacher's jobs.NewJob, so a reporter or
// executor can correlate remarks and outcomes with a specific job across
// waves without re-deriving identity from its arguments.
package buildjob

import "github.com/google/uuid"

// Kind names the four job kinds the planner and module build coordinator
// produce, per §1/§2.
type Kind string

const (
	Compile         Kind = "compile"
	ModuleBuild     Kind = "module-build"
	Link            Kind = "link"
	AutolinkExtract Kind = "autolink-extract"
)

// Job is one unit of work handed to the executor. The fields actually
// populated depend on Kind: Input is set for Compile jobs, Module for
// ModuleBuild jobs; Link and AutolinkExtract jobs carry only Arguments.
// Skip marks a job the planner judged unnecessary but still returns, per
// the null-build compatibility contract: "planBuild never returns an
// empty compile list" — the executor, not the planner, makes the final
// skip decision against its own up-to-date check.
type Job struct {
	ID              string            `json:"id"`
	Kind            Kind              `json:"kind"`
	Input           string            `json:"input,omitempty"`
	Module          string            `json:"module,omitempty"`
	Arguments       []string          `json:"arguments"`
	OutputCacheKeys map[string]string `json:"outputCacheKeys,omitempty"`
	Skip            bool              `json:"skip,omitempty"`
}

// New returns a Job with a fresh uuid ID.
func New(kind Kind, arguments []string) *Job {
	return &Job{ID: uuid.New().String(), Kind: kind, Arguments: append([]string(nil), arguments...)}
}

// NewCompile returns a Compile job for the given input.
func NewCompile(input string, arguments []string) *Job {
	j := New(Compile, arguments)
	j.Input = input
	return j
}

// NewModuleBuild returns a ModuleBuild job for the given module name.
func NewModuleBuild(module string, arguments []string) *Job {
	j := New(ModuleBuild, arguments)
	j.Module = module
	return j
}

// NewLink returns a Link job.
func NewLink(arguments []string) *Job {
	return New(Link, arguments)
}

// NewAutolinkExtract returns an AutolinkExtract job.
func NewAutolinkExtract(arguments []string) *Job {
	return New(AutolinkExtract, arguments)
}

// WithOutputCacheKey records the CAS cache key for one of this job's
// output files, used by downstream consumers' -swift-module-file=Name=Key
// / -fmodule-file-cache-key style flags (§4.G/H) when caching is enabled.
func (j *Job) WithOutputCacheKey(output, key string) *Job {
	if j.OutputCacheKeys == nil {
		j.OutputCacheKeys = make(map[string]string)
	}
	j.OutputCacheKeys[output] = key
	return j
}
