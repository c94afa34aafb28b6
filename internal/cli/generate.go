package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/pkg/config"
	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/observability"
	"github.com/llmsresearch/paperbanana/pkg/pipeline"
	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/runstore"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// generateFlags collects everything the generate command accepts.
type generateFlags struct {
	caption       string
	diagramType   string
	dataFile      string
	iterations    int
	autoRefine    bool
	maxIterations int
	optimize      bool
	resumeRunID   string
	outputDir     string
	noCache       bool
	dryRun        bool
	seed          int64
	seedSet       bool
}

// generateCommand creates the generate command for running the pipeline.
func (c *CLI) generateCommand() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [context-file]",
		Short: "Generate a diagram or plot from paper text",
		Long: `Generate a diagram or plot from paper text.

The generate command reads the method text from context-file, plans a diagram
description, then alternates image generation and visual critique until the
iteration budget is spent (or, with --auto-refine, until the critique comes
back clean). Every intermediate description, critique, and image is written
to a run directory so an interrupted run can be continued with --continue.

For statistical plots, pass --type plot and point --data at a JSON file with
the values to chart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.seedSet = cmd.Flags().Changed("seed")
			contextFile := ""
			if len(args) == 1 {
				contextFile = args[0]
			}
			return c.runGenerate(cmd.Context(), contextFile, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.caption, "caption", "c", "", "what the figure should communicate (required for new runs)")
	cmd.Flags().StringVarP(&flags.diagramType, "type", "t", "diagram", "figure type: diagram, plot")
	cmd.Flags().StringVar(&flags.dataFile, "data", "", "JSON file with raw data for plots")
	cmd.Flags().IntVarP(&flags.iterations, "iterations", "n", 0, "fixed refinement budget (default 3)")
	cmd.Flags().BoolVar(&flags.autoRefine, "auto-refine", false, "iterate until the critique has no suggestions")
	cmd.Flags().IntVar(&flags.maxIterations, "max-iterations", 0, "cap for --auto-refine (default 30)")
	cmd.Flags().BoolVar(&flags.optimize, "optimize", false, "rewrite context and caption through the VLM before planning")
	cmd.Flags().StringVar(&flags.resumeRunID, "continue", "", "continue an interrupted run by id")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "run artifact directory (default paperbanana_runs)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the example retrieval cache")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "validate inputs and provider credentials without calling any API")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "seed for reproducible image generation where supported")

	return cmd
}

// runGenerate resolves settings and inputs, then drives the pipeline.
func (c *CLI) runGenerate(ctx context.Context, contextFile string, flags generateFlags) error {
	settings, err := c.loadSettings()
	if err != nil {
		return err
	}
	if flags.outputDir != "" {
		settings.OutputDir = flags.outputDir
	}

	opts := pipeline.Options{
		Iterations:     flags.iterations,
		AutoRefine:     flags.autoRefine,
		MaxIterations:  flags.maxIterations,
		OptimizeInputs: flags.optimize,
	}
	if flags.seedSet {
		seed := flags.seed
		opts.Seed = &seed
	}

	if flags.resumeRunID != "" {
		if err := errors.ValidateRunID(flags.resumeRunID); err != nil {
			return err
		}
		state, err := runstore.LoadResumeState(settings.OutputDir, flags.resumeRunID)
		if err != nil {
			return err
		}
		opts.Resume = state
		opts.Input = state.Input
	}

	if flags.dryRun {
		return c.runDryRun(settings, opts, contextFile, flags)
	}

	if opts.Resume == nil {
		input, err := buildInput(contextFile, flags)
		if err != nil {
			return err
		}
		opts.Input = input
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	runner, err := c.newRunner(settings, flags.noCache)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Planning...")
	observability.SetPipelineHooks(&spinnerHooks{spinner: spinner, autoRefine: flags.autoRefine, budget: opts.Iterations})
	defer observability.Reset()

	spinner.Start()
	start := time.Now()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			printWarning("Interrupted. Continue with: paperbanana generate --continue <run_id>")
			return err
		}
		spinner.StopWithError("Generation failed")
		if result != nil && result.RunID != "" {
			printDetail("artifacts preserved in %s", result.RunID)
			printNextStep("Continue", fmt.Sprintf("paperbanana generate --continue %s", result.RunID))
		}
		return err
	}
	spinner.StopWithSuccess("Generation complete")

	printFile(result.ImagePath)
	printStats(result.Iterations, result.Converged, time.Since(start).Round(time.Millisecond).String())
	printKeyValue("run", result.RunID)
	if c.Logger.GetLevel() <= LogDebug {
		printTiming(result.Stats)
	}
	return nil
}

// buildInput assembles a GenerationInput from the context file and flags.
func buildInput(contextFile string, flags generateFlags) (*types.GenerationInput, error) {
	if contextFile == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "a context file is required unless --continue is set")
	}
	data, err := os.ReadFile(contextFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read context file %s", contextFile)
	}

	diagramType, err := types.ParseDiagramType(canonicalType(flags.diagramType))
	if err != nil {
		return nil, err
	}

	input := &types.GenerationInput{
		SourceContext:       strings.TrimSpace(string(data)),
		CommunicativeIntent: flags.caption,
		DiagramType:         diagramType,
	}
	if flags.dataFile != "" {
		raw, err := os.ReadFile(flags.dataFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read data file %s", flags.dataFile)
		}
		if err := json.Unmarshal(raw, &input.RawData); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse data file %s", flags.dataFile)
		}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

// canonicalType maps the short flag values onto the persisted type names.
func canonicalType(s string) string {
	switch s {
	case "diagram":
		return string(types.DiagramMethodology)
	case "plot":
		return string(types.DiagramStatisticalPlot)
	}
	return s
}

// runDryRun validates inputs and reports provider readiness without
// spending any API calls.
func (c *CLI) runDryRun(settings *config.Settings, opts pipeline.Options, contextFile string, flags generateFlags) error {
	printInfo("Dry run: no API calls made")

	if opts.Resume == nil {
		if contextFile == "" {
			printWarning("No context file provided; input checks skipped")
		} else {
			input, err := buildInput(contextFile, flags)
			if err != nil {
				printError("Input invalid: %s", errors.UserMessage(err))
				return err
			}
			printSuccess("Input valid (%s)", input.DiagramType)
		}
	}

	vlm, vlmErr := providers.CreateVLM(settings)
	imageGen, imgErr := providers.CreateImageGen(settings)

	if vlmErr != nil {
		printError("VLM %s: %s", settings.Providers.VLM, errors.UserMessage(vlmErr))
	} else {
		printSuccess("VLM %s (%s) ready", vlm.Name(), vlm.ModelName())
	}
	if imgErr != nil {
		printError("Image %s: %s", settings.Providers.Image, errors.UserMessage(imgErr))
	} else {
		printSuccess("Image %s (%s) ready", imageGen.Name(), imageGen.ModelName())
	}

	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = config.DefaultRefinementIterations
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}
	switch {
	case opts.Resume != nil:
		printDetail("would continue %s at iteration %d", opts.Resume.RunID, opts.Resume.LastIteration+1)
	case opts.AutoRefine:
		printDetail("would refine until convergence (cap %d)", maxIterations)
	default:
		printDetail("would run exactly %d iterations", iterations)
	}

	if vlmErr != nil {
		return vlmErr
	}
	if imgErr != nil {
		return imgErr
	}
	printSuccess("All checks passed")
	return nil
}

// printTiming prints the per-stage duration breakdown.
func printTiming(stats pipeline.Stats) {
	timing := stats.Timing()
	stages := make([]string, 0, len(timing))
	for stage := range timing {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		if timing[stage] > 0 {
			printDetail("%-10s %s", stage, timing[stage].Round(time.Millisecond))
		}
	}
	printDetail("%-10s %s", "total", stats.TotalTime.Round(time.Millisecond))
}

// spinnerHooks drives the progress spinner from pipeline stage events.
type spinnerHooks struct {
	observability.NoopPipelineHooks

	spinner    *Spinner
	autoRefine bool
	budget     int
}

func (h *spinnerHooks) OnStageStart(_ context.Context, _ string, stage string) {
	switch stage {
	case pipeline.StageOptimize:
		h.spinner.SetMessage("Optimizing inputs...")
	case pipeline.StagePlanning:
		h.spinner.SetMessage("Planning description...")
	case pipeline.StageFinalize:
		h.spinner.SetMessage("Saving final image...")
	}
}

func (h *spinnerHooks) OnIterationStart(_ context.Context, _ string, iteration int) {
	if h.autoRefine {
		h.spinner.SetMessage(fmt.Sprintf("Refining (iteration %d)...", iteration))
		return
	}
	h.spinner.SetMessage(fmt.Sprintf("Refining (iteration %d/%d)...", iteration, h.budget))
}
