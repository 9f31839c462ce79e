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

	"github.com/sourcenetwork/gossipmesh/core"
)

var (
	selfID  = core.NewPeerID("127.0.0.1", 5000)
	otherID = core.NewPeerID("127.0.0.1", 5001)
)

func TestView_SelfNeverInserted(t *testing.T) {
	v := newView(selfID)
	v.addKnownNode(selfID, []string{"T"})

	assert.False(t, v.contains(selfID))
	assert.True(t, v.isEmpty())
	snap := v.snapshot()
	assert.False(t, snap.Contains(selfID))
}

func TestView_TopicsUnionAndGrow(t *testing.T) {
	v := newView(selfID)
	v.addKnownNode(otherID, []string{"A"})
	v.addKnownNode(otherID, []string{"B", "A"})
	v.addKnownNode(otherID, nil)

	desc, ok := v.snapshot().Descriptor(otherID)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, desc.SubscribedTopics)
}

func TestView_RemoveNodeIdempotent(t *testing.T) {
	v := newView(selfID)
	v.addKnownNode(otherID, nil)
	v.removeNode(otherID)
	v.removeNode(otherID)
	assert.False(t, v.contains(otherID))
}

func TestView_SnapshotIsDeepCopy(t *testing.T) {
	v := newView(selfID)
	v.addKnownNode(otherID, []string{"A"})
	v.addSelfTopic("S")

	snap := v.snapshot()
	snap.Self.SubscribedTopics[0] = "mutated"
	snap.KnownNodes[0].SubscribedTopics[0] = "mutated"

	fresh := v.snapshot()
	assert.Equal(t, []string{"S"}, fresh.Self.SubscribedTopics)
	desc, ok := fresh.Descriptor(otherID)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, desc.SubscribedTopics)
}

func TestView_SelfTopicsGrowOnly(t *testing.T) {
	v := newView(selfID)
	v.addSelfTopic("A")
	v.addSelfTopic("A")
	v.addSelfTopic("B")
	assert.Equal(t, []string{"A", "B"}, v.snapshot().Self.SubscribedTopics)
}

func TestView_PeersInterestedIn(t *testing.T) {
	v := newView(selfID)
	third := core.NewPeerID("127.0.0.1", 5002)
	v.addKnownNode(otherID, []string{"T"})
	v.addKnownNode(third, []string{"other"})

	peers := v.peersInterestedIn("T")
	require.Len(t, peers, 1)
	assert.Equal(t, otherID, peers[0])

	assert.Empty(t, v.peersInterestedIn("unknown"))
}

func TestView_RandomPeer(t *testing.T) {
	v := newView(selfID)
	_, ok := v.randomPeer()
	assert.False(t, ok)

	v.addKnownNode(otherID, nil)
	id, ok := v.randomPeer()
	require.True(t, ok)
	assert.Equal(t, otherID, id)
}
