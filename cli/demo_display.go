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
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
	"github.com/sourcenetwork/gossipmesh/net"
)

func MakeDemoDisplayCommand(cfg *config.Config) *cobra.Command {
	var (
		topics []string
		peer   string
	)
	var cmd = &cobra.Command{
		Use:   "display",
		Short: "Print every payload received on the given topics",
		Long: `Start a node, subscribe to the given topics, and print every received
payload until interrupted. Consumes the node's message events channel so
printing happens off the I/O goroutines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := startDemoNode(cmd.Context(), cfg, peer, net.WithMessageEvents())
			if err != nil {
				return err
			}
			defer func() {
				if err := n.Close(); err != nil {
					log.ErrorE(cmd.Context(), "Failed to close node", err)
				}
			}()

			for _, topic := range topics {
				// Interest is declared through Subscribe; delivery is
				// consumed from the events channel below.
				n.Subscribe(topic, func(string, string) {})
			}

			if !n.Events().Messages.HasValue() {
				return errors.New("message events channel is not enabled")
			}
			messages, err := n.Events().Messages.Value().Subscribe()
			if err != nil {
				return errors.Wrap("failed to subscribe to message events", err)
			}

			log.FeedbackInfo(
				cmd.Context(),
				"Display listening",
				logging.NewKV("PeerID", n.PeerID()),
				logging.NewKV("Topics", topics),
			)

			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, os.Interrupt)

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-signalCh:
					return nil
				case msg, ok := <-messages:
					if !ok {
						return nil
					}
					cmd.Printf("Received %s data: %s\n", msg.Topic, msg.Content)
				}
			}
		},
	}

	cmd.Flags().StringArrayVar(&topics, "topic", []string{"Temperature"}, "Topics to subscribe to")
	cmd.Flags().StringVar(&peer, "peer", "", "Bootstrap peer to add to the view")
	return cmd
}
