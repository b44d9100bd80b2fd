// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the S1-S6 scenarios and report pass/fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			failures := 0
			for _, s := range scenarios() {
				if only != "" && s.name != only {
					continue
				}
				if err := s.run(); err != nil {
					failures++
					fmt.Fprintf(cmd.OutOrStdout(), "%s FAIL: %v\n", s.name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s PASS\n", s.name)
			}
			if failures > 0 {
				return fmt.Errorf("%d scenario(s) failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "scenario", "", "run a single scenario by name (e.g. S1); default runs all")
	return cmd
}
