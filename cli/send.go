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
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
	"github.com/sourcenetwork/gossipmesh/net"
	netutils "github.com/sourcenetwork/gossipmesh/net/utils"
)

func MakeSendCommand(cfg *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "send <peer> <topic> <content>",
		Short: "Send a single payload to a peer",
		Long: `Write one publish frame for the given topic directly to the given
peer. The peer delivers the payload to its local subscribers; it is not
relayed further.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return errors.New("must specify three arguments: peer, topic, content")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := netutils.ParsePeer(args[0])
			if err != nil {
				return errors.Wrap("could not parse peer address", err)
			}
			topic, content := args[1], args[2]
			if strings.Contains(content, net.Sentinel) {
				return errors.New("content must not contain the frame sentinel")
			}

			if err := net.SendPublish(target, topic, content, clientTimeout); err != nil {
				return errors.Wrap("failed to send payload", err)
			}
			log.FeedbackInfo(
				cmd.Context(),
				"Payload sent",
				logging.NewKV("Peer", target),
				logging.NewKV("Topic", topic),
			)
			return nil
		},
	}
	return cmd
}
