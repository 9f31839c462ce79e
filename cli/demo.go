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

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/net"
)

func MakeDemoCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "demo",
		Short: "Run one of the demo collaborators",
		Long: `Run one of the demo programs built on the node's publish/subscribe
operations: a temperature sensor, a printing display, and a camera
publisher/subscriber pair.`,
	}
	return cmd
}

// startDemoNode builds and starts a node for a demo command, optionally
// seeding it with a bootstrap peer.
func startDemoNode(
	ctx context.Context,
	cfg *config.Config,
	peer string,
	opts ...net.NodeOpt,
) (*net.Node, error) {
	opts = append(opts, net.WithGossipInterval(cfg.Net.GossipInterval))
	n, err := net.NewNode(ctx, cfg.Net.Host, cfg.Net.Port, opts...)
	if err != nil {
		return nil, errors.Wrap("failed to create node", err)
	}

	if peer != "" {
		id, err := parsePeerFlag(peer)
		if err != nil {
			if e := n.Close(); e != nil {
				log.ErrorE(ctx, "Failed to close node", e)
			}
			return nil, err
		}
		n.AddKnownNode(id.IP, id.Port)
	}

	n.Start()
	return n, nil
}
