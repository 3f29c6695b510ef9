package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the finished video for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				dest := output
				if dest == "" {
					detail, err := client.Status(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					base := strings.TrimSuffix(detail.SourceName, filepath.Ext(detail.SourceName))
					if base == "" {
						base = detail.ID
					}
					dest = base + ".mp4"
				}
				if err := client.Download(cmd.Context(), args[0], dest); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the source name with .mp4)")
	return cmd
}
