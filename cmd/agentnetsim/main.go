// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command agentnetsim drives the S1-S6 scenarios against an in-process
// Committee Registry and Consensus Engine, with no chain or container
// host behind them, for manual exploration of the request lifecycle.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentnetsim",
	Short: "Deterministic scenario simulator for the agent network",
	Long: `agentnetsim exercises the Consensus Engine's request lifecycle
in-process against a fake clock and an in-memory ledger, with no
chain or container host behind it: subcommittee election, submitted
responses, majority and threshold finalization, payout splitting,
timeouts and ring-buffer overwrite.`,
}

func main() {
	rootCmd.AddCommand(runCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
