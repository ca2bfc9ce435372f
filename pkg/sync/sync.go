// Package sync drives full dependency synchronization: resolved groups
// in, completed cache entries (and optional environment links) out.
package sync

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/fetch"
	"github.com/kam-pm/kam/pkg/logging"
	"github.com/kam-pm/kam/pkg/manifest"
	"github.com/kam-pm/kam/pkg/resolver"
	"github.com/kam-pm/kam/pkg/venv"
)

// Options adjust a synchronization run.
type Options struct {
	// Groups limits the run to the named groups. Empty means every
	// group in the manifest.
	Groups []string

	// Force refetches every dependency even when completed cache
	// entries exist.
	Force bool

	// Env, when set, receives a library link for every synchronized
	// dependency.
	Env *venv.Venv
}

// DepStatus is the per-dependency outcome within a group report.
type DepStatus struct {
	ID      string
	Version string // concrete version that was materialized
	Fetched bool   // false when served from the cache
	Origin  string
	Err     error
}

// GroupReport is the outcome of synchronizing one group.
type GroupReport struct {
	Name string
	Deps []DepStatus
}

// Failed reports whether the group aborted on a dependency error.
func (g GroupReport) Failed() bool {
	for _, d := range g.Deps {
		if d.Err != nil {
			return true
		}
	}
	return false
}

// Report is the outcome of a full synchronization run.
type Report struct {
	Groups  []GroupReport
	Fetched int
	Cached  int
	Linked  int
}

// Orchestrator wires group resolution to the fetcher.
type Orchestrator struct {
	resolver *resolver.Resolver
	fetcher  *fetch.Fetcher
	logger   zerolog.Logger
}

// New creates an Orchestrator over the manifest's groups.
func New(m *manifest.Manifest, f *fetch.Fetcher) *Orchestrator {
	return &Orchestrator{
		resolver: resolver.New(m.Groups),
		fetcher:  f,
		logger:   logging.GetLogger("sync"),
	}
}

// Run resolves the requested groups and ensures a completed cache
// entry for every dependency, in group order then dependency order.
// A dependency failure aborts its group's remaining dependencies but
// the error is still returned to the caller alongside the report of
// what completed before it.
func (o *Orchestrator) Run(opts Options) (*Report, error) {
	resolved, err := o.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	names := opts.Groups
	if len(names) == 0 {
		names = make([]string, 0, len(resolved))
		for name := range resolved {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	report := &Report{}
	for _, name := range names {
		group, ok := resolved[name]
		if !ok {
			return report, errors.Newf(errors.ErrGroupNotFound,
				"group '%s' is not defined", name).WithDetail("group", name)
		}

		gr, err := o.runGroup(group, opts, report)
		report.Groups = append(report.Groups, gr)
		if err != nil {
			return report, err
		}
	}

	o.logger.Info().
		Int("fetched", report.Fetched).
		Int("cached", report.Cached).
		Int("linked", report.Linked).
		Msg("synchronization complete")
	return report, nil
}

// runGroup ensures every dependency of one resolved group, stopping at
// the first failure.
func (o *Orchestrator) runGroup(group resolver.ResolvedGroup, opts Options, report *Report) (GroupReport, error) {
	gr := GroupReport{Name: group.Name}
	logger := o.logger.With().Str("group", group.Name).Logger()
	logger.Debug().Int("deps", len(group.Deps)).Msg("synchronizing group")

	for _, dep := range group.Deps {
		result, err := o.fetcher.Ensure(dep, fetch.Options{Force: opts.Force})
		if err != nil {
			gr.Deps = append(gr.Deps, DepStatus{ID: dep.ID, Version: dep.Version, Err: err})
			logger.Error().Err(err).Str("module", dep.String()).Msg("dependency failed, aborting group")
			return gr, err
		}

		status := DepStatus{
			ID:      result.ID,
			Version: result.Version,
			Fetched: result.Fetched,
			Origin:  result.Origin,
		}
		if result.Fetched {
			report.Fetched++
		} else {
			report.Cached++
		}

		if opts.Env != nil {
			if err := opts.Env.LinkLibrary(result.ID, result.Version, o.fetcher.Cache()); err != nil {
				status.Err = err
				gr.Deps = append(gr.Deps, status)
				return gr, err
			}
			report.Linked++
		}

		gr.Deps = append(gr.Deps, status)
		logger.Debug().
			Str("module", result.ID+"-"+result.Version).
			Bool("fetched", result.Fetched).
			Msg("dependency ready")
	}

	return gr, nil
}
