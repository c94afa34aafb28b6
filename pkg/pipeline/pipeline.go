// Package pipeline implements the iterative diagram generation workflow.
//
// This package contains the orchestrator shared by the CLI and the MCP
// server. By centralizing this logic, both entry points get identical
// behavior and artifact layouts.
//
// # Architecture
//
// A run moves through four stages:
//
//  1. Optimize: optionally rewrite the source context and intent for clarity
//  2. Planning: draft the initial diagram description
//  3. Refinement: generate an image, critique it, revise the description
//  4. Finalize: persist the accepted image and report timings
//
// The refinement loop is bounded: a fixed iteration budget by default, or,
// with auto-refine, it stops at the first critique with no suggestions.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(vlm, imageGen, store, nil, logger)
//	opts := pipeline.Options{
//	    Input:      input,
//	    Iterations: 3,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.ImagePath)
//
// Interrupted runs resume through the same entry point:
//
//	state, err := runstore.LoadResumeState(root, runID)
//	result, err := runner.Execute(ctx, pipeline.Options{Input: state.Input, Resume: state})
package pipeline

import (
	"fmt"
	"time"

	"github.com/llmsresearch/paperbanana/pkg/config"
	"github.com/llmsresearch/paperbanana/pkg/runstore"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// Stage names used in timing breakdowns and observability events.
const (
	StageOptimize   = "optimize"
	StagePlanning   = "planning"
	StageRefinement = "refinement"
	StageFinalize   = "finalize"
)

// Default image dimensions requested from the image provider.
const (
	DefaultImageWidth  = 1536
	DefaultImageHeight = 1024
)

// Options configures one pipeline run.
type Options struct {
	// Input is the generation request. Required.
	Input *types.GenerationInput

	// Iterations is the fixed refinement budget for a bounded run.
	// Defaults to config.DefaultRefinementIterations.
	Iterations int

	// AutoRefine switches to convergence mode: the loop stops at the first
	// critique with no suggestions, bounded by MaxIterations.
	AutoRefine bool

	// MaxIterations caps an auto-refine run. Defaults to
	// config.DefaultMaxIterations.
	MaxIterations int

	// OptimizeInputs rewrites the source context and intent through the
	// VLM before planning.
	OptimizeInputs bool

	// Resume continues an interrupted run instead of starting fresh.
	// When set, planning is skipped and the loop is seeded from the
	// reconstructed state.
	Resume *runstore.ResumeState

	// Seed makes image generation reproducible where supported.
	Seed *int64

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == nil {
		return fmt.Errorf("input is required")
	}
	if err := o.Input.Validate(); err != nil {
		return err
	}
	if o.Iterations <= 0 {
		o.Iterations = config.DefaultRefinementIterations
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = config.DefaultMaxIterations
	}
	o.validated = true
	return nil
}

// budget returns the maximum number of iterations this run may execute.
func (o *Options) budget() int {
	if o.AutoRefine {
		return o.MaxIterations
	}
	return o.Iterations
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the artifact directory.
	RunID string

	// ImagePath is the final accepted image on disk.
	ImagePath string

	// Description is the diagram description that produced the final image.
	Description string

	// Planning is the persisted planning record, nil when resumed past it.
	Planning *types.PlanningRecord

	// Iterations is the number of refinement passes executed in this
	// invocation.
	Iterations int

	// Converged is true when an auto-refine run stopped because critique
	// had no suggestions.
	Converged bool

	// Stats contains the per-stage timing breakdown.
	Stats Stats
}

// Stats contains pipeline execution timings.
type Stats struct {
	OptimizeTime   time.Duration
	PlanningTime   time.Duration
	RefinementTime time.Duration
	FinalizeTime   time.Duration
	TotalTime      time.Duration
}

// Timing returns the breakdown keyed by stage name.
func (s Stats) Timing() map[string]time.Duration {
	return map[string]time.Duration{
		StageOptimize:   s.OptimizeTime,
		StagePlanning:   s.PlanningTime,
		StageRefinement: s.RefinementTime,
		StageFinalize:   s.FinalizeTime,
	}
}
