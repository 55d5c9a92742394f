// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <video-id>",
		Short: "Resolve one video and print the outcome as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := newRuntime(ctx, c.cfg)
			defer func() { _ = rt.close() }()

			if _, err := rt.refreshOnce(ctx); err != nil {
				return err
			}

			out, err := rt.orchestrator.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
