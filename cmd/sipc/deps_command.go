package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sipc/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := deps.CheckFFmpeg(cmd.Context(), cfg.Compress.FFmpegBinary)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"Name", "Command", "Available", "Detail"},
				rows:    [][]string{{status.Name, status.Command, yesNo(status.Available), status.Detail}},
			}))
			if !status.Available {
				fmt.Fprintln(out, "Video and audio assets will be copied unchanged until ffmpeg is installed.")
			}
			return nil
		},
	}
}
