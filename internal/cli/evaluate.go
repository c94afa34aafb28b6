package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/judge"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// evaluateCommand creates the evaluate command for judging a generated
// figure against a human-made reference.
func (c *CLI) evaluateCommand() *cobra.Command {
	var (
		contextText string
		contextFile string
		caption     string
	)

	cmd := &cobra.Command{
		Use:   "evaluate <generated> <reference>",
		Short: "Compare a generated figure against a reference image",
		Long: `Compare a generated figure against a reference image.

The evaluate command scores both images on faithfulness, conciseness,
readability, and aesthetics, then picks an overall winner by walking the
dimensions in that order: the first dimension that is not a tie decides.

The source context grounds the faithfulness check, so pass the same text
the figure was generated from via --context or --context-file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if contextFile != "" {
				data, err := os.ReadFile(contextFile)
				if err != nil {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "read context file %s", contextFile)
				}
				contextText = strings.TrimSpace(string(data))
			}
			return c.runEvaluate(cmd.Context(), judge.Request{
				GeneratedPath: args[0],
				ReferencePath: args[1],
				SourceContext: contextText,
				Caption:       caption,
			})
		},
	}

	cmd.Flags().StringVar(&contextText, "context", "", "source text the figure was generated from")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "file containing the source text")
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "figure caption")

	return cmd
}

// runEvaluate scores the pair and prints the verdict.
func (c *CLI) runEvaluate(ctx context.Context, req judge.Request) error {
	settings, err := c.loadSettings()
	if err != nil {
		return err
	}
	j, err := c.newJudge(settings)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Scoring 4 dimensions...")
	spinner.Start()
	prog := newProgress(c.Logger)
	scores, err := j.Evaluate(ctx, req)
	if err != nil {
		spinner.StopWithError("Evaluation failed")
		return err
	}
	spinner.Stop()
	prog.done("Scored 4 dimensions")

	printVerdict(scores)
	return nil
}

// printVerdict renders the per-dimension winners and the overall result.
func printVerdict(scores *types.EvaluationScores) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := [][]string{
		{types.DimensionFaithfulness, string(scores.Faithfulness.Winner), scores.Faithfulness.Reasoning},
		{types.DimensionConciseness, string(scores.Conciseness.Winner), scores.Conciseness.Reasoning},
		{types.DimensionReadability, string(scores.Readability.Winner), scores.Readability.Reasoning},
		{types.DimensionAesthetics, string(scores.Aesthetics.Winner), scores.Aesthetics.Reasoning},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Dimension", "Winner", "Reasoning").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 {
				return winnerStyle(types.Winner(rows[row][1]))
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(colorGray).Width(56)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t)

	printNewline()
	overall := winnerStyle(scores.OverallWinner).Render(string(scores.OverallWinner))
	printKeyValue("winner", overall)
	printKeyValue("score", fmt.Sprintf("%+d", scores.OverallScore))
}

// winnerStyle colors a verdict: green for generated, yellow for tie,
// plain for reference.
func winnerStyle(w types.Winner) lipgloss.Style {
	switch w {
	case types.WinnerGenerated:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case types.WinnerTie:
		return lipgloss.NewStyle().Foreground(colorYellow)
	}
	return lipgloss.NewStyle().Foreground(colorWhite)
}
