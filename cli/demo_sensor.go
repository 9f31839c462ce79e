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
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/logging"
	netutils "github.com/sourcenetwork/gossipmesh/net/utils"
)

func parsePeerFlag(peer string) (core.PeerID, error) {
	return netutils.ParsePeer(peer)
}

func MakeDemoSensorCommand(cfg *config.Config) *cobra.Command {
	var (
		topic string
		peer  string
		rate  time.Duration
	)
	var cmd = &cobra.Command{
		Use:   "sensor",
		Short: "Publish synthetic temperature readings",
		Long: `Start a node and publish a synthetic temperature reading on the given
topic at a fixed rate until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := startDemoNode(cmd.Context(), cfg, peer)
			if err != nil {
				return err
			}
			defer func() {
				if err := n.Close(); err != nil {
					log.ErrorE(cmd.Context(), "Failed to close node", err)
				}
			}()

			log.FeedbackInfo(
				cmd.Context(),
				"Sensor publishing",
				logging.NewKV("PeerID", n.PeerID()),
				logging.NewKV("Topic", topic),
			)

			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, os.Interrupt)
			ticker := time.NewTicker(rate)
			defer ticker.Stop()

			reading := 0
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-signalCh:
					return nil
				case <-ticker.C:
					n.Publish(topic, fmt.Sprintf("Temperature is %d°C", reading))
					reading++
				}
			}
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "Temperature", "Topic to publish readings on")
	cmd.Flags().StringVar(&peer, "peer", "", "Bootstrap peer to add to the view")
	cmd.Flags().DurationVar(&rate, "rate", time.Second, "Delay between readings")
	return cmd
}
