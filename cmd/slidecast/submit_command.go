package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <deck>",
		Short: "Submit a presentation for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				jobID, err := client.Submit(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", jobID)
				if !wait {
					return nil
				}
				return waitForJob(cmd, client, jobID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Voice, "voice", "", "Narration voice (e.g. en-US-JennyNeural)")
	cmd.Flags().Float64Var(&opts.SpeakingRate, "rate", 0, "Speaking rate multiplier (e.g. 1.2)")
	cmd.Flags().StringVar(&opts.Resolution, "resolution", "", "Output resolution (720p, 1080p, 4k)")
	cmd.Flags().IntVar(&opts.FPS, "fps", 0, "Output frame rate")
	cmd.Flags().StringVar(&opts.Quality, "quality", "", "Encode quality (draft, standard, high)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the job reaches a terminal state")

	return cmd
}

// waitForJob polls until the job completes or fails, reporting state changes
// as they happen.
func waitForJob(cmd *cobra.Command, client *apiClient, jobID string) error {
	out := cmd.OutOrStdout()
	lastState := ""
	for {
		detail, err := client.Status(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		if detail.State != lastState {
			fmt.Fprintf(out, "%s (%d%%)\n", detail.State, detail.PercentComplete)
			lastState = detail.State
		}
		switch detail.State {
		case "completed":
			return nil
		case "failed":
			if detail.ErrorMessage != "" {
				return fmt.Errorf("job failed: %s", detail.ErrorMessage)
			}
			return fmt.Errorf("job failed (%s)", detail.ErrorKind)
		}
		select {
		case <-cmd.Context().Done():
			return context.Cause(cmd.Context())
		case <-time.After(2 * time.Second):
		}
	}
}
