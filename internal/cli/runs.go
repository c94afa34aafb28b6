package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/pkg/runstore"
)

// runsCommand creates the runs command for listing past run directories.
func (c *CLI) runsCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past generation runs",
		Long: `List past generation runs.

Each run directory holds the original input, the planning record, and every
iteration's description, critique, and image. Incomplete runs can be picked
up again with 'generate --continue <run_id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRuns(outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "run artifact directory (default paperbanana_runs)")

	return cmd
}

func (c *CLI) runRuns(outputDir string) error {
	settings, err := c.loadSettings()
	if err != nil {
		return err
	}
	if outputDir != "" {
		settings.OutputDir = outputDir
	}

	store, err := runstore.NewStore(settings.OutputDir)
	if err != nil {
		return err
	}
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs in %s", store.Root())
		printNextStep("Start one", "paperbanana generate context.txt -c \"caption\"")
		return nil
	}

	printRunsTable(runs)
	return nil
}

// printRunsTable renders the run listing, newest first.
func printRunsTable(runs []runstore.RunInfo) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "incomplete"
		if r.HasFinal {
			status = "complete"
		}
		rows = append(rows, []string{
			r.RunID,
			r.Modified.Format("2006-01-02 15:04"),
			strconv.Itoa(r.Iterations),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Modified", "Iterations", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 3 {
				if rows[row][3] == "complete" {
					return lipgloss.NewStyle().Foreground(colorGreen)
				}
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			if col == 1 || col == 2 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t)
}
