package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sipc/internal/store"
	"sipc/internal/textutil"
)

type packView struct {
	Hash      string    `json:"hash"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPacksCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "packs",
		Short: "List uploaded packs and their job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var statuses []store.Status
			for _, value := range statusFlags {
				status, ok := store.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			packs, err := st.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			if jsonOutput {
				views := make([]packView, 0, len(packs))
				for _, p := range packs {
					views = append(views, packView{
						Hash: p.Hash, Name: p.Name, Status: string(p.Status), Error: p.ErrorMessage,
						CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(packs) == 0 {
				fmt.Fprintln(out, "No packs")
				return nil
			}
			rows := make([][]string, 0, len(packs))
			for _, p := range packs {
				rows = append(rows, []string{
					shortHash(p.Hash),
					p.Name,
					textutil.Title(string(p.Status)),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
					p.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"Hash", "Name", "Status", "Updated", "Error"},
				rows:    rows,
			}))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print packs as JSON")
	return cmd
}

func shortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
