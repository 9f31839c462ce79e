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
Package logging provides the shared structured logger. It wraps zap with a
small key-value API and "feedback" variants that echo to stderr for
messages that command-line users must see regardless of log routing.
*/
package logging

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// KV is a key-value pair used to pass structured data to the loggers.
type KV struct {
	key   string
	value any
}

// NewKV creates a new key-value pair.
func NewKV(key string, value any) KV {
	return KV{
		key:   key,
		value: value,
	}
}

// Logger is a named logger instance.
type Logger interface {
	Debug(ctx context.Context, message string, keyvals ...KV)
	Info(ctx context.Context, message string, keyvals ...KV)
	Error(ctx context.Context, message string, keyvals ...KV)
	ErrorE(ctx context.Context, message string, err error, keyvals ...KV)
	Fatal(ctx context.Context, message string, keyvals ...KV)
	FatalE(ctx context.Context, message string, err error, keyvals ...KV)

	FeedbackInfo(ctx context.Context, message string, keyvals ...KV)
	FeedbackError(ctx context.Context, message string, keyvals ...KV)
	FeedbackErrorE(ctx context.Context, message string, err error, keyvals ...KV)
	FeedbackFatalE(ctx context.Context, message string, err error, keyvals ...KV)

	ApplyConfig(config Config)
}

// MustNewLogger returns a logger for the given name, panicking if the
// underlying zap logger cannot be built.
func MustNewLogger(name string) Logger {
	logger, err := newLogger(name, defaultConfig())
	if err != nil {
		panic(err)
	}
	registry.register(logger)
	return logger
}

// SetConfig updates the global logging configuration and reconfigures
// every registered logger.
func SetConfig(config Config) {
	registry.apply(config)
}

type namedLogger struct {
	name   string
	mu     sync.RWMutex
	logger *zap.Logger
}

var _ Logger = (*namedLogger)(nil)

func newLogger(name string, config Config) (*namedLogger, error) {
	zapLogger, err := buildZapLogger(name, config)
	if err != nil {
		return nil, err
	}
	return &namedLogger{
		name:   name,
		logger: zapLogger,
	}, nil
}

func (l *namedLogger) ApplyConfig(config Config) {
	zapLogger, err := buildZapLogger(l.name, config)
	if err != nil {
		// never fail the host program over log plumbing
		fmt.Fprintf(os.Stderr, "failed to apply logging config: %v\n", err)
		return
	}
	l.mu.Lock()
	l.logger = zapLogger
	l.mu.Unlock()
}

func (l *namedLogger) zap() *zap.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

func (l *namedLogger) Debug(_ context.Context, message string, keyvals ...KV) {
	l.zap().Debug(message, toZapFields(keyvals)...)
}

func (l *namedLogger) Info(_ context.Context, message string, keyvals ...KV) {
	l.zap().Info(message, toZapFields(keyvals)...)
}

func (l *namedLogger) Error(_ context.Context, message string, keyvals ...KV) {
	l.zap().Error(message, toZapFields(keyvals)...)
}

func (l *namedLogger) ErrorE(ctx context.Context, message string, err error, keyvals ...KV) {
	l.Error(ctx, message, withError(err, keyvals)...)
}

func (l *namedLogger) Fatal(_ context.Context, message string, keyvals ...KV) {
	l.zap().Fatal(message, toZapFields(keyvals)...)
}

func (l *namedLogger) FatalE(ctx context.Context, message string, err error, keyvals ...KV) {
	l.Fatal(ctx, message, withError(err, keyvals)...)
}

func (l *namedLogger) FeedbackInfo(ctx context.Context, message string, keyvals ...KV) {
	l.Info(ctx, message, keyvals...)
	fmt.Fprintln(os.Stderr, feedbackLine(message, keyvals))
}

func (l *namedLogger) FeedbackError(ctx context.Context, message string, keyvals ...KV) {
	l.Error(ctx, message, keyvals...)
	fmt.Fprintln(os.Stderr, feedbackLine(message, keyvals))
}

func (l *namedLogger) FeedbackErrorE(ctx context.Context, message string, err error, keyvals ...KV) {
	l.FeedbackError(ctx, message, withError(err, keyvals)...)
}

func (l *namedLogger) FeedbackFatalE(ctx context.Context, message string, err error, keyvals ...KV) {
	fmt.Fprintln(os.Stderr, feedbackLine(message, withError(err, keyvals)))
	l.Fatal(ctx, message, withError(err, keyvals)...)
}

func withError(err error, keyvals []KV) []KV {
	if err == nil {
		return keyvals
	}
	return append(keyvals, NewKV("Error", err.Error()))
}

func toZapFields(keyvals []KV) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals))
	for _, kv := range keyvals {
		fields = append(fields, zap.Any(kv.key, kv.value))
	}
	return fields
}

func feedbackLine(message string, keyvals []KV) string {
	line := message
	for _, kv := range keyvals {
		line += fmt.Sprintf(" %s=%v", kv.key, kv.value)
	}
	return line
}

func buildZapLogger(name string, config Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(config.level())
	zapConfig.DisableStacktrace = true
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch config.Format {
	case FormatCSV:
		zapConfig.Encoding = "console"
	default:
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return zapLogger.Named(name), nil
}

type loggerRegistry struct {
	mu      sync.Mutex
	loggers []Logger
}

var registry = &loggerRegistry{}

func (r *loggerRegistry) register(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers = append(r.loggers, logger)
}

func (r *loggerRegistry) apply(config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, logger := range r.loggers {
		logger.ApplyConfig(config)
	}
}
