// Package judge compares a generated diagram against a human reference.
//
// Four dimensions are scored independently by a VLM (faithfulness,
// conciseness, readability, aesthetics), each producing a winner and
// free-text reasoning. The verdict aggregates them hierarchically:
// faithfulness decides unless it ties, then conciseness, then readability,
// then aesthetics. A win on a higher-priority dimension always outranks
// any combination of lower-priority wins.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/imageutil"
	"github.com/llmsresearch/paperbanana/pkg/observability"
	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// Request identifies the two images under comparison and the paper
// context they illustrate.
type Request struct {
	GeneratedPath string
	ReferencePath string
	SourceContext string
	Caption       string
}

// Judge scores generated diagrams against references.
type Judge struct {
	VLM    providers.VLM
	Logger *log.Logger
}

// New creates a judge. A nil logger uses the package default.
func New(vlm providers.VLM, logger *log.Logger) *Judge {
	if logger == nil {
		logger = log.Default()
	}
	return &Judge{VLM: vlm, Logger: logger}
}

type dimensionSpec struct {
	name     string
	question string
}

// Evaluation order matches aggregation priority.
var dimensions = []dimensionSpec{
	{types.DimensionFaithfulness, "Which image more accurately represents the method described in the context, without inventing or omitting components?"},
	{types.DimensionConciseness, "Which image communicates the intended message with less clutter and redundancy?"},
	{types.DimensionReadability, "Which image is easier to read: clearer labels, legible text, sensible visual flow?"},
	{types.DimensionAesthetics, "Which image looks more polished and publication-ready?"},
}

// Evaluate scores every dimension and aggregates the verdict. Dimensions
// are judged concurrently; each one is an independent VLM call so no
// cross-dimension anchoring can occur.
func (j *Judge) Evaluate(ctx context.Context, req Request) (*types.EvaluationScores, error) {
	generated, err := imageutil.Load(req.GeneratedPath)
	if err != nil {
		return nil, err
	}
	reference, err := imageutil.Load(req.ReferencePath)
	if err != nil {
		return nil, err
	}

	results := make([]types.DimensionScore, len(dimensions))
	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range dimensions {
		i, dim := i, dim
		g.Go(func() error {
			score, err := j.scoreDimension(gctx, req, dim, generated, reference)
			if err != nil {
				return fmt.Errorf("%s: %w", dim.name, err)
			}
			results[i] = *score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := &types.EvaluationScores{
		Faithfulness: results[0],
		Conciseness:  results[1],
		Readability:  results[2],
		Aesthetics:   results[3],
	}
	scores.Aggregate()

	j.Logger.Debug("evaluation complete",
		"overall", scores.OverallWinner,
		"score", scores.OverallScore)
	return scores, nil
}

// dimensionReply is the VLM's JSON response shape for one dimension.
type dimensionReply struct {
	Winner    string `json:"winner"`
	Reasoning string `json:"reasoning"`
}

func (j *Judge) scoreDimension(ctx context.Context, req Request, dim dimensionSpec, generated, reference []byte) (*types.DimensionScore, error) {
	prompt := buildDimensionPrompt(req, dim)

	observability.Provider().OnCall(ctx, j.VLM.Name(), j.VLM.ModelName(), "judge")
	start := time.Now()
	raw, err := j.VLM.Generate(ctx, providers.VLMRequest{
		Prompt:         prompt,
		Images:         [][]byte{generated, reference},
		SystemPrompt:   judgeSystemPrompt,
		ResponseFormat: "json",
	})
	observability.Provider().OnComplete(ctx, j.VLM.Name(), j.VLM.ModelName(), "judge", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var reply dimensionReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFailed, err, "parse judge response")
	}
	winner, err := types.ParseWinner(reply.Winner)
	if err != nil {
		return nil, err
	}
	return &types.DimensionScore{Winner: winner, Reasoning: reply.Reasoning}, nil
}

const judgeSystemPrompt = `You are judging scientific figures for a paper. The FIRST attached image ` +
	`is the generated candidate, the SECOND is the human-made reference. Respond with a JSON object: ` +
	`{"winner": "generated" | "reference" | "tie", "reasoning": "..."}.`

func buildDimensionPrompt(req Request, dim dimensionSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimension: %s\n%s\n\n", dim.name, dim.question)
	fmt.Fprintf(&b, "Method context:\n%s\n\n", req.SourceContext)
	fmt.Fprintf(&b, "Figure caption: %s\n", req.Caption)
	b.WriteString("\nJudge this dimension only, ignoring all other qualities.")
	return b.String()
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
