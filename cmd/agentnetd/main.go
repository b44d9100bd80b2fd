// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command agentnetd runs either the on-chain side of the agent
// network (the Committee Registry, Consensus Engine and HTTP API) or
// an off-chain Validator Runner against an already-running one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentnetd",
	Short: "Decentralized agent network daemon",
	Long: `agentnetd runs the decentralized oracle/compute network described in
the agent network's operations surface: subcommittee election and
liveness tracking, request creation, response submission and majority
or threshold finalization, and the off-chain Validator Runner that
executes agent containers and reports back.`,
}

func main() {
	rootCmd.AddCommand(serveCmd(), validatorCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
