package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				detail, err := client.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, detail)
				}
				renderJobDetail(cmd.OutOrStdout(), detail)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderJobDetail(out io.Writer, detail jobDetail) {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Job:      %s\n", detail.ID)
	fmt.Fprintf(out, "Source:   %s\n", detail.SourceName)
	fmt.Fprintf(out, "State:    %s (%d%%)\n", colorState(detail.State, colorize), detail.PercentComplete)
	if detail.SlideCount > 0 {
		fmt.Fprintf(out, "Slides:   %d\n", detail.SlideCount)
	}
	if detail.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s (%s)\n", detail.ErrorMessage, detail.ErrorKind)
	}
	if detail.VideoReady {
		fmt.Fprintln(out, "Video:    ready to download")
	}

	if len(detail.Stages) == 0 {
		return
	}
	rows := make([][]string, 0, len(detail.Stages))
	for _, stage := range detail.Stages {
		rows = append(rows, []string{
			stage.Name,
			stage.Status,
			formatDuration(stage.DurationMS),
			stage.Detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Status", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func colorState(state string, colorize bool) string {
	if !colorize {
		return state
	}
	switch state {
	case "completed":
		return ansiGreen + state + ansiReset
	case "failed":
		return ansiRed + state + ansiReset
	default:
		return ansiYellow + state + ansiReset
	}
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
