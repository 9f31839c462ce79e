// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptions_DeliveryInRegistrationOrder(t *testing.T) {
	subs := newSubscriptions()
	var order []int
	subs.add("T", func(string, string) { order = append(order, 1) })
	subs.add("T", func(string, string) { order = append(order, 2) })
	subs.add("T", func(string, string) { order = append(order, 3) })

	subs.deliver("T", "payload")
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSubscriptions_DuplicateHandlerDeliversTwice(t *testing.T) {
	subs := newSubscriptions()
	count := 0
	handler := func(string, string) { count++ }
	subs.add("T", handler)
	subs.add("T", handler)

	subs.deliver("T", "payload")
	assert.Equal(t, 2, count)
}

func TestSubscriptions_FirstSubscriptionReported(t *testing.T) {
	subs := newSubscriptions()
	assert.True(t, subs.add("T", func(string, string) {}))
	assert.False(t, subs.add("T", func(string, string) {}))
	assert.True(t, subs.add("other", func(string, string) {}))
}

func TestSubscriptions_UnknownTopicIsNoop(t *testing.T) {
	subs := newSubscriptions()
	assert.NotPanics(t, func() {
		subs.deliver("unknown", "payload")
	})
	assert.False(t, subs.has("unknown"))
}

func TestSubscriptions_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	subs := newSubscriptions()
	delivered := false
	subs.add("T", func(string, string) { panic("boom") })
	subs.add("T", func(topic string, content string) {
		delivered = true
		assert.Equal(t, "T", topic)
		assert.Equal(t, "payload", content)
	})

	require.NotPanics(t, func() {
		subs.deliver("T", "payload")
	})
	assert.True(t, delivered)
}
