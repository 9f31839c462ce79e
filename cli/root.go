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
	"github.com/sourcenetwork/gossipmesh/logging"
)

func MakeRootCommand(cfg *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:           "gossipmesh",
		Short:         "Gossipmesh - decentralized topic-based publish/subscribe",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Gossipmesh is a broker-less, topic-based publish/subscribe overlay for
small trust-internal networks. Every participant is a symmetric peer that
discovers the others by transitive gossip seeded from configured peers.

Start a node with:

	gossipmesh start --host auto --port 5000 --peers 192.168.1.12:5000
`,
		// Load the config before any subcommand runs, reading the config
		// file only when one exists under the root directory.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.LoadWithRootdir(cfg.ConfigFileExists()); err != nil {
				return config.NewErrLoadingConfig(err)
			}
			logging.SetConfig(cfg.ToLoggingConfig())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(
		&cfg.Rootdir, "rootdir", config.DefaultRootDir(),
		"Directory for the configuration file",
	)

	cmd.PersistentFlags().String(
		"loglevel", cfg.Log.Level,
		"Log level to use. Options are debug, info, error, fatal",
	)
	err := cfg.BindFlag("log.level", cmd.PersistentFlags().Lookup("loglevel"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind log.level", err)
	}

	cmd.PersistentFlags().String(
		"logformat", cfg.Log.Format,
		"Log format to use. Options are json, csv",
	)
	err = cfg.BindFlag("log.format", cmd.PersistentFlags().Lookup("logformat"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind log.format", err)
	}

	cmd.PersistentFlags().String(
		"logoutput", cfg.Log.Output,
		"Log destination path. Defaults to stderr",
	)
	err = cfg.BindFlag("log.output", cmd.PersistentFlags().Lookup("logoutput"))
	if err != nil {
		log.FeedbackFatalE(context.Background(), "Could not bind log.output", err)
	}

	return cmd
}
