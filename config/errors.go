// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package config

import "github.com/sourcenetwork/gossipmesh/errors"

const (
	errLoadingConfig     = "failed to load config"
	errReadingConfigFile = "failed to read config file"
	errWritingConfigFile = "failed to write config file"
)

var (
	ErrInvalidPort           = errors.New("invalid port")
	ErrInvalidGossipInterval = errors.New("gossip interval must be positive")
)

func NewErrLoadingConfig(inner error) error {
	return errors.Wrap(errLoadingConfig, inner)
}

func NewErrReadingConfigFile(inner error) error {
	return errors.Wrap(errReadingConfigFile, inner)
}

func NewErrWritingConfigFile(inner error) error {
	return errors.Wrap(errWritingConfigFile, inner)
}
