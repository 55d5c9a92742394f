// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newEndpointsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Refresh every endpoint source once and print the merged list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt := newRuntime(ctx, c.cfg)
			defer func() { _ = rt.close() }()

			res, err := rt.refreshOnce(ctx)
			if err != nil {
				return err
			}
			snap := rt.provider.Snapshot()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"endpoints": snap.List.Strings(),
					"source":    snap.Source,
					"updatedAt": snap.UpdatedAt,
				})
			}

			for _, src := range res.Sources {
				status := "ok"
				if src.Err != nil {
					status = src.Err.Error()
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "# %-15s %3d  %s\n", src.Source, src.Count, status)
			}
			for _, ep := range snap.List {
				fmt.Fprintln(out, ep)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}
