package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sipc/internal/compressor"
	"sipc/internal/events"
	"sipc/internal/jobs"
	"sipc/internal/logging"
	"sipc/internal/transform"
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var jsonOutput bool
	var level int

	cmd := &cobra.Command{
		Use:   "compress <pack.siq>",
		Short: "Compress a pack file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			in := args[0]
			if _, err := os.Stat(in); err != nil {
				return fmt.Errorf("input pack: %w", err)
			}
			out := strings.TrimSpace(outputPath)
			if out == "" {
				out = defaultOutputPath(in)
			}
			if cmd.Flags().Changed("level") {
				cfg.Compress.CompressionLevel = level
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if !jsonOutput {
				logger = logging.NewNop()
			}

			stdout := cmd.OutOrStdout()
			colorize := !jsonOutput && shouldColorize(stdout)
			var writeErr error
			pub := events.PublisherFunc(func(e events.Event) {
				if e.IsDone() || writeErr != nil {
					return
				}
				if jsonOutput {
					writeErr = writeJSONLine(stdout, e)
					return
				}
				if line := renderEvent(e, colorize); line != "" {
					_, writeErr = fmt.Fprintln(stdout, line)
				}
			})

			comp := compressor.New(transform.NewDispatcher(cfg, logger), cfg.Compress.CompressionLevel, logger)
			summary, err := jobs.RunLocal(cmd.Context(), comp, in, out, pub)
			if err != nil {
				return err
			}
			if writeErr != nil {
				return writeErr
			}
			if !jsonOutput {
				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, renderSummary(summary))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (default <name>-compressed.siq next to the input)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print events as JSON lines")
	cmd.Flags().IntVar(&level, "level", 0, "Override compress.compression_level (0-9)")
	return cmd
}

func defaultOutputPath(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(filepath.Dir(in), base+"-compressed.siq")
}

func renderSummary(s compressor.Summary) string {
	saved := s.InputSize - s.OutputSize
	ratio := "-"
	if s.InputSize > 0 {
		ratio = fmt.Sprintf("%.1f%%", float64(s.OutputSize)*100/float64(s.InputSize))
	}
	return renderTable(tableSpec{
		title:   "Summary",
		headers: []string{"Metric", "Value"},
		rows: [][]string{
			{"Pack version", fmt.Sprintf("%d", s.Version)},
			{"Media files", fmt.Sprintf("%d", s.ItemsCount)},
			{"Compressed", fmt.Sprintf("%d", s.Compressed)},
			{"Kept as-is", fmt.Sprintf("%d", s.Failed)},
			{"Input size", logging.FormatBytes(s.InputSize)},
			{"Output size", logging.FormatBytes(s.OutputSize)},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
		},
		aligns: []columnAlignment{alignLeft, alignRight},
		footer: []string{"Saved", fmt.Sprintf("%s (%s of original)", logging.FormatBytes(saved), ratio)},
	})
}
