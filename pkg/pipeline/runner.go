package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llmsresearch/paperbanana/pkg/cache"
	"github.com/llmsresearch/paperbanana/pkg/observability"
	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/runstore"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// Runner executes the generation pipeline against a fixed pair of
// providers and an artifact store.
//
// The Runner is stateless between runs: every Execute call owns a distinct
// run directory, so multiple goroutines can safely share one Runner.
type Runner struct {
	VLM      providers.VLM
	ImageGen providers.ImageGen
	Store    *runstore.Store
	Cache    cache.Cache
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil cache disables example memoization;
// a nil logger discards output.
func NewRunner(vlm providers.VLM, imageGen providers.ImageGen, store *runstore.Store, c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		VLM:      vlm,
		ImageGen: imageGen,
		Store:    store,
		Cache:    c,
		Logger:   logger,
	}
}

// Execute runs the optimize, planning, refinement, and finalize stages for
// a fresh run, or re-enters the refinement loop when opts.Resume is set.
//
// A provider failure inside planning or an iteration aborts the run but
// preserves everything written so far, so the run stays resumable. In that
// case the returned Result still carries the RunID alongside the error.
// Only input optimization degrades to a pass-through on failure.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	result := &Result{}
	input := opts.Input

	var description string
	firstIteration := 1

	if opts.Resume != nil {
		result.RunID = opts.Resume.RunID
		description = opts.Resume.LastDescription
		firstIteration = opts.Resume.LastIteration + 1
		result.Planning = opts.Resume.Planning
		r.Logger.Info("resuming run",
			"run_id", result.RunID,
			"last_iteration", opts.Resume.LastIteration)
	} else {
		// Stage 1: Optimize (optional, never fatal)
		if opts.OptimizeInputs {
			stageStart := time.Now()
			input = r.optimizeInputs(ctx, input)
			result.Stats.OptimizeTime = time.Since(stageStart)
		}

		runID, err := r.Store.CreateRun(input)
		if err != nil {
			return nil, err
		}
		result.RunID = runID
		r.Logger.Info("created run", "run_id", runID, "type", input.DiagramType)

		// Stage 2: Planning
		stageStart := time.Now()
		planning, err := r.plan(ctx, runID, input)
		result.Stats.PlanningTime = time.Since(stageStart)
		if err != nil {
			return result, err
		}
		result.Planning = planning
		description = planning.BestDescription()
	}

	if description == "" {
		return result, fmt.Errorf("no description available to refine")
	}

	// Stage 3: Refinement
	stageStart := time.Now()
	finalImage, err := r.refine(ctx, result, input, description, firstIteration, opts)
	result.Stats.RefinementTime = time.Since(stageStart)
	if err != nil {
		return result, err
	}

	// Stage 4: Finalize
	stageStart = time.Now()
	if err := r.finalize(ctx, result, finalImage); err != nil {
		return result, err
	}
	result.Stats.FinalizeTime = time.Since(stageStart)
	result.Stats.TotalTime = time.Since(start)

	r.Logger.Info("run complete",
		"run_id", result.RunID,
		"iterations", result.Iterations,
		"image", result.ImagePath,
		"duration", result.Stats.TotalTime)
	return result, nil
}

// optimizeInputs rewrites the input through the VLM. Any failure degrades
// to the original input unchanged.
func (r *Runner) optimizeInputs(ctx context.Context, input *types.GenerationInput) *types.GenerationInput {
	observability.Pipeline().OnStageStart(ctx, "", StageOptimize)
	start := time.Now()

	raw, err := r.generateText(ctx, providers.VLMRequest{
		Prompt:         buildOptimizePrompt(input),
		SystemPrompt:   optimizerSystemPrompt,
		ResponseFormat: "json",
	})
	var optimized *optimizedInputs
	if err == nil {
		optimized, err = parseOptimized(raw)
	}
	observability.Pipeline().OnStageComplete(ctx, "", StageOptimize, time.Since(start), err)

	if err != nil {
		r.Logger.Warn("input optimization failed, using original inputs", "err", err)
		return input
	}

	out := *input
	out.SourceContext = optimized.SourceContext
	out.CommunicativeIntent = optimized.CommunicativeIntent
	r.Logger.Debug("optimized inputs")
	return &out
}

// plan drafts the initial description and persists planning.json.
func (r *Runner) plan(ctx context.Context, runID string, input *types.GenerationInput) (*types.PlanningRecord, error) {
	observability.Pipeline().OnStageStart(ctx, runID, StagePlanning)
	start := time.Now()

	examples := retrieveExamples(ctx, r.Cache, input)
	initial, err := r.generateText(ctx, providers.VLMRequest{
		Prompt:       buildPlanningPrompt(input, examples),
		SystemPrompt: plannerSystemPrompt,
	})
	observability.Pipeline().OnStageComplete(ctx, runID, StagePlanning, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}

	planning := &types.PlanningRecord{
		RetrievedExamples:  examples,
		InitialDescription: initial,
	}
	if err := r.Store.SavePlanning(runID, planning); err != nil {
		return nil, err
	}
	r.Logger.Info("planned diagram", "run_id", runID, "duration", time.Since(start))
	return planning, nil
}

// refine runs the generate → critique → revise loop and returns the last
// produced image.
func (r *Runner) refine(ctx context.Context, result *Result, input *types.GenerationInput, description string, first int, opts Options) ([]byte, error) {
	var lastImage []byte
	last := first + opts.budget() - 1

	for n := first; n <= last; n++ {
		observability.Pipeline().OnIterationStart(ctx, result.RunID, n)
		iterStart := time.Now()

		image, critique, err := r.iterate(ctx, result.RunID, input, description, n, opts.Seed)
		needsRevision := critique != nil && critique.NeedsRevision()
		observability.Pipeline().OnIterationComplete(ctx, result.RunID, n, needsRevision, time.Since(iterStart), err)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", n, err)
		}

		lastImage = image
		result.Iterations++
		result.Description = description

		r.Logger.Info("iteration complete",
			"run_id", result.RunID,
			"iteration", n,
			"suggestions", len(critique.CriticSuggestions),
			"duration", time.Since(iterStart))

		if opts.AutoRefine && !needsRevision {
			result.Converged = true
			r.Logger.Info("critique accepted the image", "run_id", result.RunID, "iteration", n)
			break
		}

		// An empty revision never blanks the working description.
		description = critique.NextDescription(description)
	}
	return lastImage, nil
}

// iterate performs one refinement pass: render, critique, persist.
func (r *Runner) iterate(ctx context.Context, runID string, input *types.GenerationInput, description string, n int, seed *int64) ([]byte, *types.CritiqueResult, error) {
	image, err := r.generateImage(ctx, providers.ImageRequest{
		Prompt: description,
		Width:  DefaultImageWidth,
		Height: DefaultImageHeight,
		Seed:   seed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("generate image: %w", err)
	}

	raw, err := r.generateText(ctx, providers.VLMRequest{
		Prompt:         buildCritiquePrompt(input, description),
		Images:         [][]byte{image},
		SystemPrompt:   criticSystemPrompt,
		ResponseFormat: "json",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("critique: %w", err)
	}
	critique, err := parseCritique(raw)
	if err != nil {
		return nil, nil, err
	}

	rec := &types.IterationRecord{Description: description, Critique: *critique}
	if err := r.Store.SaveIteration(runID, n, rec, image); err != nil {
		return nil, nil, err
	}
	return image, critique, nil
}

// finalize copies the accepted image to the run root.
func (r *Runner) finalize(ctx context.Context, result *Result, image []byte) error {
	observability.Pipeline().OnStageStart(ctx, result.RunID, StageFinalize)
	start := time.Now()

	path, err := r.Store.SaveFinalImage(result.RunID, image)
	observability.Pipeline().OnStageComplete(ctx, result.RunID, StageFinalize, time.Since(start), err)
	if err != nil {
		return err
	}
	result.ImagePath = path
	return nil
}

func (r *Runner) generateText(ctx context.Context, req providers.VLMRequest) (string, error) {
	observability.Provider().OnCall(ctx, r.VLM.Name(), r.VLM.ModelName(), "vlm")
	start := time.Now()
	out, err := r.VLM.Generate(ctx, req)
	observability.Provider().OnComplete(ctx, r.VLM.Name(), r.VLM.ModelName(), "vlm", time.Since(start), err)
	return out, err
}

func (r *Runner) generateImage(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	observability.Provider().OnCall(ctx, r.ImageGen.Name(), r.ImageGen.ModelName(), "image")
	start := time.Now()
	out, err := r.ImageGen.Generate(ctx, req)
	observability.Provider().OnComplete(ctx, r.ImageGen.Name(), r.ImageGen.ModelName(), "image", time.Since(start), err)
	return out, err
}
