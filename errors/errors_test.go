// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Message(t *testing.T) {
	err := New("something failed")
	assert.Equal(t, "something failed", err.Error())
}

func TestNew_WithKVs(t *testing.T) {
	err := New("something failed", NewKV("Peer", "10.0.0.1:5000"), NewKV("Count", 3))
	assert.Equal(t, "something failed. Peer: 10.0.0.1:5000, Count: 3", err.Error())
}

func TestWrap_RendersInner(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("failed to connect to peer", inner)
	assert.Equal(t, "failed to connect to peer: connection refused", err.Error())
	assert.True(t, Is(err, inner))
}

func TestIs_MatchesSameSentinel(t *testing.T) {
	sentinel := New("not found")
	wrapped := Wrap("lookup failed", sentinel)
	assert.True(t, Is(wrapped, sentinel))
	assert.False(t, Is(wrapped, New("different")))
}

func TestWithStack_PreservesInner(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := WithStack(inner)
	assert.Equal(t, "boom", err.Error())
	assert.True(t, Is(err, inner))
}

func TestStacktraceCaptured(t *testing.T) {
	err := New("traced")
	withTrace, ok := err.(*baseError)
	require.True(t, ok)
	assert.Contains(t, withTrace.Stack(), "errors_test.go")
}
