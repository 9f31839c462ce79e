// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package logging

import "go.uber.org/zap/zapcore"

// Log output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Log levels accepted by Config.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Config is the logging configuration shared by all named loggers.
type Config struct {
	Level      string
	Format     string
	OutputPath string
}

func defaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatJSON,
	}
}

func (c Config) level() zapcore.Level {
	switch c.Level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
