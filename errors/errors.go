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
Package errors provides the internal error system. Errors carry a message,
optional key-value pairs, an optional inner error, and the stacktrace
captured at creation.
*/
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxStackDepth int = 32

// KV is a key-value pair attached to an error.
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

// New creates a new error with the given message and key-value pairs.
func New(message string, keyvals ...KV) error {
	return withStackTrace(message, 1, keyvals...)
}

// Wrap creates a new error of the given message that contains
// the given inner error, suffixing any given key-value pairs.
func Wrap(message string, inner error, keyvals ...KV) error {
	err := withStackTrace(message, 1, keyvals...)
	err.inner = inner
	return err
}

// WithStack wraps the given error with a stacktrace, suffixing any
// given key-value pairs.
func WithStack(err error, keyvals ...KV) error {
	newErr := withStackTrace(err.Error(), 1, keyvals...)
	newErr.inner = err
	newErr.stackOnly = true
	return newErr
}

// Is delegates to the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As delegates to the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

type baseError struct {
	message    string
	inner      error
	keyvals    []KV
	stacktrace string
	// stackOnly is set by WithStack: the message already is the inner
	// error's text, so Error does not render the inner error again.
	stackOnly bool
}

var _ error = (*baseError)(nil)
var _ fmt.Stringer = (*baseError)(nil)

func (e *baseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.message)

	for i, kv := range e.keyvals {
		if i == 0 {
			sb.WriteString(".")
		} else {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf(" %s: %v", kv.key, kv.value))
	}

	if e.inner != nil && !e.stackOnly {
		sb.WriteString(": ")
		sb.WriteString(e.inner.Error())
	}

	return sb.String()
}

func (e *baseError) String() string {
	return e.Error()
}

func (e *baseError) Unwrap() error {
	return e.inner
}

func (e *baseError) Is(target error) bool {
	switch otherError := target.(type) {
	case *baseError:
		return e.message == otherError.message
	default:
		return errors.Is(e.inner, target)
	}
}

// Stack returns the stacktrace captured when the error was created.
func (e *baseError) Stack() string {
	return e.stacktrace
}

func withStackTrace(message string, depthToSkip int, keyvals ...KV) *baseError {
	stackBuffer := make([]uintptr, maxStackDepth)
	// Skip the returned program counters for runtime.Callers, this function,
	// and the public function that called it.
	length := runtime.Callers(2+depthToSkip, stackBuffer)
	stack := stackBuffer[:length]
	frames := runtime.CallersFrames(stack)

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}

	return &baseError{
		message:    message,
		keyvals:    keyvals,
		stacktrace: sb.String(),
	}
}
