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
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/net"
	netutils "github.com/sourcenetwork/gossipmesh/net/utils"
)

const clientTimeout = 5 * time.Second

func MakeInfoCommand(cfg *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "info <peer>",
		Short: "Query a running peer for its membership view",
		Long: `Send a one-shot info request to the given peer (host:port or
/ip4/../tcp/..) and print the view it answers with.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return errors.New("must specify one argument: peer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := netutils.ParsePeer(args[0])
			if err != nil {
				return errors.Wrap("could not parse peer address", err)
			}

			// The sender descriptor is ephemeral: the queried peer learns
			// nothing durable about this client.
			sender := core.View{
				Self: core.NewPeerDescriptor(core.NewPeerID("127.0.0.1", 0)),
			}
			view, err := net.FetchInfo(target, sender, clientTimeout)
			if err != nil {
				return errors.Wrap("failed to fetch info, request failed", err)
			}

			out, err := json.MarshalIndent(view, "", "    ")
			if err != nil {
				return errors.Wrap("failed to serialize view", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
	return cmd
}
