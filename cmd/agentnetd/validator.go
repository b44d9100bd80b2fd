// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/agentnet/consensus"
	"github.com/luxfi/agentnet/hostapi"
	"github.com/luxfi/agentnet/ids"
	"github.com/luxfi/agentnet/logging"
	"github.com/luxfi/agentnet/runner"
)

// toRequestCreated adapts the on-chain consensus.RequestCreatedEvent
// into the runner package's own decoupled RequestCreated type (the
// runner does not import consensus; see runner.RequestCreated's doc).
func toRequestCreated(evt consensus.RequestCreatedEvent) runner.RequestCreated {
	return runner.RequestCreated{
		RequestID:    evt.RequestID,
		AgentID:      evt.AgentID,
		Payload:      evt.Payload,
		Subcommittee: evt.Subcommittee,
		Threshold:    evt.Threshold,
		Budget:       evt.Budget,
	}
}

func validatorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validator",
		Short: "Run the off-chain Validator Runner against a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidator(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "validator.yaml", "path to the validator config file")
	return cmd
}

func runValidator(ctx context.Context, configPath string) error {
	log := logging.New("agentnet-validator")

	cfg, err := loadValidatorConfig(configPath)
	if err != nil {
		return err
	}
	self, err := parseNodeIDHex(cfg.Self)
	if err != nil {
		return err
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 4
	}

	api := newAPIClient(cfg.APIBaseURL, 30*time.Second)

	host := hostapi.NewHTTPClient(cfg.HostAPIBaseURL, 30*time.Second)
	prober := runner.NewHTTPProber(2 * time.Second)
	peers := runner.NewPeerBook()
	for rawID, addr := range cfg.Peers {
		peerID, err := parseNodeIDHex(rawID)
		if err != nil {
			return err
		}
		peers.Set(peerID, addr)
	}

	r := runner.New(log, self, host, api, prober, peers, maxInFlight)

	quorumListen := cfg.QuorumListen
	if quorumListen == "" {
		quorumListen = ":9090"
	}
	quorumServer := &http.Server{Addr: quorumListen, Handler: r.QuorumHandler()}
	go func() {
		log.Info("serving quorum probe endpoint", "addr", quorumServer.Addr)
		if err := quorumServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("quorum probe server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runHeartbeatLoop(ctx, log, api, self)

	cursor := 0
	for ctx.Err() == nil {
		events, next, err := api.PollCreated(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("poll created failed", "err", err)
			time.Sleep(time.Second)
			continue
		}
		cursor = next

		for _, evt := range events {
			created := toRequestCreated(evt)
			go func(created runner.RequestCreated) {
				if err := r.HandleRequestCreated(ctx, created); err != nil {
					log.Warn("handle request created failed", "requestId", created.RequestID, "err", err)
				}
			}(created)
		}
	}

	log.Info("shutting down")
	return quorumServer.Shutdown(context.Background())
}

// runHeartbeatLoop keeps self marked live in the committee's liveness
// tracker (spec §4.1) for as long as ctx is not done.
func runHeartbeatLoop(ctx context.Context, log logging.Logger, api *apiClient, self ids.NodeID) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := api.Heartbeat(ctx, self); err != nil {
				log.Warn("heartbeat failed", "err", err)
			}
		}
	}
}
