package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "preview <deck>",
		Short: "Extract speaker notes without queuing a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				preview, err := client.PreviewNotes(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, preview)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d slides, %d with narration\n", preview.SlideCount, preview.NarratedCount)
				for _, note := range preview.Notes {
					text := strings.TrimSpace(note.Text)
					if text == "" {
						text = "(silent)"
					}
					fmt.Fprintf(out, "%3d: %s\n", note.Index, text)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
