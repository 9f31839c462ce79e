// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// gossipmesh is a decentralized, broker-less, topic-based
// publish/subscribe node.
package main

import (
	"context"
	"os"

	"github.com/sourcenetwork/gossipmesh/cli"
	"github.com/sourcenetwork/gossipmesh/config"
)

func main() {
	cfg := config.DefaultConfig()
	ctx := context.Background()
	meshCmd := cli.NewGossipmeshCommand(cfg)
	if err := meshCmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
