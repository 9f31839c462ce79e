// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	httpapi "github.com/sourcenetwork/gossipmesh/api/http"
	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
	"github.com/sourcenetwork/gossipmesh/net"
	netutils "github.com/sourcenetwork/gossipmesh/net/utils"
)

func MakeStartCommand(cfg *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "start",
		Short: "Start a gossipmesh node",
		Long:  "Start a new gossipmesh node and serve the gossip protocol until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mi, err := start(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return wait(cmd.Context(), mi)
		},
	}

	cmd.Flags().String(
		"host", cfg.Net.Host,
		"Address to bind the node to; \"auto\" selects the local outbound address",
	)
	err := cfg.BindFlag("net.host", cmd.Flags().Lookup("host"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind net.host", err)
	}

	cmd.Flags().Int(
		"port", cfg.Net.Port,
		"TCP port the node listens on",
	)
	err = cfg.BindFlag("net.port", cmd.Flags().Lookup("port"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind net.port", err)
	}

	cmd.Flags().String(
		"peers", cfg.Net.Peers,
		"List of peers to connect to (comma-separated host:port or /ip4/../tcp/.. entries)",
	)
	err = cfg.BindFlag("net.peers", cmd.Flags().Lookup("peers"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind net.peers", err)
	}

	cmd.Flags().Duration(
		"gossip-interval", cfg.Net.GossipInterval,
		"Period between gossip reconciliation rounds",
	)
	err = cfg.BindFlag("net.gossipinterval", cmd.Flags().Lookup("gossip-interval"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind net.gossipinterval", err)
	}

	cmd.Flags().String(
		"api", cfg.API.Address,
		"Address to serve the node HTTP API on; empty disables the API",
	)
	err = cfg.BindFlag("api.address", cmd.Flags().Lookup("api"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind api.address", err)
	}

	return cmd
}

type meshInstance struct {
	node   *net.Node
	server *httpapi.Server
}

func (mi *meshInstance) close(ctx context.Context) {
	if err := mi.node.Close(); err != nil {
		log.FeedbackInfo(
			ctx,
			"The node could not be closed successfully",
			logging.NewKV("Error", err.Error()),
		)
	}
	if mi.server != nil {
		if err := mi.server.Close(); err != nil {
			log.FeedbackInfo(
				ctx,
				"The API server could not be closed successfully",
				logging.NewKV("Error", err.Error()),
			)
		}
	}
}

func start(ctx context.Context, cfg *config.Config) (*meshInstance, error) {
	log.FeedbackInfo(
		ctx,
		"Starting gossipmesh node",
		logging.NewKV("Host", cfg.Net.Host),
		logging.NewKV("Port", cfg.Net.Port),
	)

	n, err := net.NewNode(
		ctx,
		cfg.Net.Host,
		cfg.Net.Port,
		net.WithGossipInterval(cfg.Net.GossipInterval),
	)
	if err != nil {
		return nil, errors.Wrap("failed to create node", err)
	}

	if len(cfg.Net.Peers) != 0 {
		peers, err := netutils.ParsePeers(strings.Split(cfg.Net.Peers, ","))
		if err != nil {
			if e := n.Close(); e != nil {
				log.ErrorE(ctx, "Failed to close node", e)
			}
			return nil, errors.Wrap("failed to parse bootstrap peers", err)
		}
		for _, peer := range peers {
			n.AddKnownNode(peer.IP, peer.Port)
		}
		log.Info(ctx, "Bootstrapping with peers", logging.NewKV("Peers", peers))
	}

	n.Start()
	log.FeedbackInfo(ctx, "Node started", logging.NewKV("PeerID", n.PeerID()))

	mi := &meshInstance{node: n}

	if cfg.API.Address != "" {
		server := httpapi.NewServer(
			n,
			httpapi.WithAddress(cfg.API.Address),
			httpapi.WithPeerID(n.PeerID().String()),
		)
		if err := server.Listen(ctx); err != nil {
			mi.close(ctx)
			return nil, errors.Wrap("failed to listen on API address", err)
		}
		go func() {
			if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.FeedbackErrorE(ctx, "Failed to run the API server", err)
				mi.close(ctx)
				os.Exit(1)
			}
		}()
		mi.server = server
	}

	return mi, nil
}

// wait waits for an interrupt signal to close the node.
func wait(ctx context.Context, mi *meshInstance) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt)

	select {
	case <-ctx.Done():
		log.FeedbackInfo(ctx, "Received context cancellation; closing node...")
		mi.close(ctx)
		return ctx.Err()
	case <-signalCh:
		log.FeedbackInfo(ctx, "Received interrupt; closing node...")
		mi.close(ctx)
		return nil
	}
}
