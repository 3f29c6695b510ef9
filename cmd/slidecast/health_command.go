package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon and collaborator readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				report, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon: %s\n", report.Status)
				rows := make([][]string, 0, len(report.Stages))
				for _, stage := range report.Stages {
					ready := "ready"
					if !stage.Ready {
						ready = "unavailable"
					}
					rows = append(rows, []string{stage.Name, ready, stage.Detail})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Stage", "Status", "Detail"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
}
