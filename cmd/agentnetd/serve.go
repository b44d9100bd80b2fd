// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/agentnet/api"
	"github.com/luxfi/agentnet/committee"
	"github.com/luxfi/agentnet/config"
	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/ledger"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/metrics"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Committee Registry, Consensus Engine and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "agentnetd.yaml", "path to the daemon config file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	log := logging.New("agentnetd")

	cfg, err := loadDaemonConfig(configPath)
	if err != nil {
		return err
	}
	params := cfg.Parameters
	if params == (config.Parameters{}) {
		params = config.DefaultParameters()
	}

	metric, err := metrics.NewRegistry("agentnet", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	members := committee.New(log, committee.RealClock, metric, params.HeartbeatInterval, params.UpkeepInterval)

	agents, err := newStaticRegistry(cfg.Agents)
	if err != nil {
		return err
	}

	store := ledger.NewMemStore(params.RingCapacity, params.StartingRequestID)
	engine := consensus.New(log, committee.RealClock, params, store, members, agents, metric)

	server := api.NewServer(log, engine, members)

	listen := cfg.Listen
	if listen == "" {
		listen = ":8080"
	}
	httpServer := &http.Server{Addr: listen, Handler: server}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", "addr", listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
