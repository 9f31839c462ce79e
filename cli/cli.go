// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

/*
Package cli provides the gossipmesh command-line interface.
*/
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/logging"
)

var log = logging.MustNewLogger("cli")

// GossipmeshCommand is the root of the command tree.
type GossipmeshCommand struct {
	RootCmd *cobra.Command
	Cfg     *config.Config
}

// NewGossipmeshCommand assembles the full command tree for the given
// configuration.
func NewGossipmeshCommand(cfg *config.Config) GossipmeshCommand {
	rootCmd := MakeRootCommand(cfg)

	demoCmd := MakeDemoCommand()
	demoCmd.AddCommand(
		MakeDemoSensorCommand(cfg),
		MakeDemoDisplayCommand(cfg),
		MakeDemoCameraPubCommand(cfg),
		MakeDemoCameraSubCommand(cfg),
	)

	rootCmd.AddCommand(
		MakeStartCommand(cfg),
		MakeInfoCommand(cfg),
		MakeSendCommand(cfg),
		demoCmd,
	)

	return GossipmeshCommand{
		RootCmd: rootCmd,
		Cfg:     cfg,
	}
}

// Execute runs the command tree with the given context.
func (c GossipmeshCommand) Execute(ctx context.Context) error {
	if err := c.RootCmd.ExecuteContext(ctx); err != nil {
		log.FeedbackErrorE(ctx, "Execution failed", err)
		return err
	}
	return nil
}
