// Package flowtable builds a RHESSys flow table for a project.
//
// A run checks the project's metadata for every input createflowpaths
// needs, resolves paths and raster names into a Plan, runs createflowpaths
// inside a GRASS session and, only if that succeeds, records the flow table
// names and the invoking command line back into metadata.
package flowtable

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ecohydro/rhessysflow/internal/ctxlog"
	"github.com/ecohydro/rhessysflow/internal/grass"
	"github.com/ecohydro/rhessysflow/internal/metadata"
)

// Options are the per-run switches.
type Options struct {
	// RouteRoads routes flow from roads to the nearest stream pixel.
	RouteRoads bool
	// RouteRoofs routes roof flow through roof connectivity and
	// impervious surface rasters, producing separate surface and
	// subsurface flow tables.
	RouteRoofs bool
	// Force runs even when the DEM x and y resolutions differ.
	Force bool
	// CommandLine is appended to the processing history on success.
	CommandLine string
}

// State is how far a run got.
type State int

const (
	StateStart State = iota
	StatePreconditionsChecked
	StatePathsResolved
	StateToolInvoked
	StatePostconditionsWritten
	StateAborted
)

var stateNames = [...]string{
	StateStart:                 "start",
	StatePreconditionsChecked:  "preconditions_checked",
	StatePathsResolved:         "paths_resolved",
	StateToolInvoked:           "tool_invoked",
	StatePostconditionsWritten: "postconditions_written",
	StateAborted:               "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Project is the directory a run works on and its metadata store.
type Project struct {
	Dir   string
	Store metadata.Store
}

// GRASSOpener starts a GRASS session for loc. If the returned Commander
// also implements io.Closer it is closed when the run finishes.
type GRASSOpener func(loc grass.Location) (grass.Commander, error)

// Stage runs the flow table step for one project.
type Stage struct {
	Project   Project
	OpenGRASS GRASSOpener

	// OnWarning receives recoverable problems, such as non-square DEM cells
	// under Force. Warnings are always logged as well.
	OnWarning func(msg string)
}

// Result describes a finished run.
type Result struct {
	State State
	// Reached is the last state completed before an abort. It equals
	// State on success.
	Reached State
	Plan    *Plan
	Output  string
	History metadata.HistoryEntry
}

// Plan checks preconditions and resolves the run without invoking
// createflowpaths or writing metadata.
func (s *Stage) Plan(ctx context.Context, opts Options) (*Plan, error) {
	sections, err := s.readSections(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(sections, s.Project.Dir, opts); err != nil {
		return nil, err
	}
	plan, err := resolvePlan(sections, s.Project.Dir, opts)
	if err != nil {
		return nil, err
	}
	if err := s.checkResolution(ctx, plan, opts); err != nil {
		return plan, err
	}
	return plan, nil
}

// Run executes the whole step. The returned Result is never nil. When err is
// non-nil its State is StateAborted and Reached tells how far the run got.
func (s *Stage) Run(ctx context.Context, opts Options) (*Result, error) {
	log := ctxlog.FromContext(ctx)
	res := &Result{State: StateStart}

	abort := func(err error) (*Result, error) {
		log.Debug("flowtable run aborted", "after", res.State, "err", err)
		res.Reached = res.State
		res.State = StateAborted
		return res, err
	}

	sections, err := s.readSections(ctx)
	if err != nil {
		return abort(err)
	}
	if err := checkPreconditions(sections, s.Project.Dir, opts); err != nil {
		return abort(err)
	}
	res.State = StatePreconditionsChecked

	plan, err := resolvePlan(sections, s.Project.Dir, opts)
	if err != nil {
		return abort(err)
	}
	res.Plan = plan
	if err := s.checkResolution(ctx, plan, opts); err != nil {
		return abort(err)
	}
	res.State = StatePathsResolved

	log.Info("flowtable template", "path", plan.Template)
	log.Info("flowtable output", "path", plan.FlowOut)

	out, err := s.invoke(ctx, plan)
	if err != nil {
		return abort(err)
	}
	res.Output = out
	res.State = StateToolInvoked

	h, err := s.Project.Store.CommitRun(ctx, []metadata.Assignment{
		{Key: metadata.SurfaceFlowtable, Value: plan.SurfaceFlowtable},
		{Key: metadata.SubsurfaceFlowtable, Value: plan.SubsurfaceFlowtable},
	}, opts.CommandLine)
	if err != nil {
		return abort(err)
	}
	res.History = h
	res.State = StatePostconditionsWritten
	res.Reached = res.State

	log.Info("flowtable created",
		"surface", plan.SurfaceFlowtable,
		"subsurface", plan.SubsurfaceFlowtable,
		"run_id", h.RunID)
	return res, nil
}

func (s *Stage) readSections(ctx context.Context) (sectionSet, error) {
	if s.Project.Store == nil {
		return nil, fmt.Errorf("project %s has no metadata store", s.Project.Dir)
	}
	sections := make(sectionSet, len(metadata.Sections))
	for _, sec := range metadata.Sections {
		entries, err := s.Project.Store.ReadSection(ctx, sec)
		if err != nil {
			return nil, err
		}
		sections[sec] = entries
	}
	return sections, nil
}

func (s *Stage) checkResolution(ctx context.Context, plan *Plan, opts Options) error {
	if !plan.ResolutionMismatch() {
		return nil
	}
	msg := fmt.Sprintf("DEM x resolution (%f) does not match y resolution (%f)", plan.ResolutionX, plan.ResolutionY)
	ctxlog.FromContext(ctx).Warn(msg, "force", opts.Force)
	if s.OnWarning != nil {
		s.OnWarning(msg)
	}
	if !opts.Force {
		return &ResolutionMismatchError{X: plan.ResolutionX, Y: plan.ResolutionY}
	}
	return nil
}

func (s *Stage) invoke(ctx context.Context, plan *Plan) (string, error) {
	if s.OpenGRASS == nil {
		return "", fmt.Errorf("no GRASS session configured")
	}
	cmdr, err := s.OpenGRASS(plan.GRASS)
	if err != nil {
		return "", fmt.Errorf("start GRASS session: %w", err)
	}
	if c, ok := cmdr.(io.Closer); ok {
		defer c.Close()
	}

	params := plan.Params()
	ctxlog.FromContext(ctx).Debug("running createflowpaths", "program", plan.CFBin, "args", grass.Args(params))

	out, err := cmdr.ReadCommand(ctx, plan.CFBin, params)
	if err != nil {
		ie := &InvocationError{Program: plan.CFBin, Err: err}
		var cerr *grass.CommandError
		if errors.As(err, &cerr) {
			ie.Output = cerr.Stdout
		}
		return "", ie
	}
	return out, nil
}
