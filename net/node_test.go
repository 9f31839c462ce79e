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
	"context"
	gonet "net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcenetwork/gossipmesh/core"
)

const (
	testGossipInterval = 50 * time.Millisecond
	waitFor            = 5 * time.Second
	tick               = 10 * time.Millisecond
)

func newTestNode(t *testing.T, opts ...NodeOpt) *Node {
	t.Helper()
	opts = append(
		[]NodeOpt{
			WithGossipInterval(testGossipInterval),
			WithBindRetryInterval(20 * time.Millisecond),
		},
		opts...,
	)
	n, err := NewNode(context.Background(), "127.0.0.1", 0, opts...)
	require.NoError(t, err)
	n.Start()
	t.Cleanup(func() {
		require.NoError(t, n.Close())
	})
	return n
}

// recorder collects deliveries for assertions across goroutines.
type recorder struct {
	mu       sync.Mutex
	messages []core.Message
}

func (r *recorder) handler(topic string, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, core.Message{Topic: topic, Content: content})
}

func (r *recorder) all() []core.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Message{}, r.messages...)
}

func TestNode_LoopbackPublish(t *testing.T) {
	n := newTestNode(t)
	rec := &recorder{}
	n.Subscribe("T", rec.handler)

	n.Publish("T", "hello")

	messages := rec.all()
	require.Len(t, messages, 1)
	assert.Equal(t, core.Message{Topic: "T", Content: "hello"}, messages[0])
	// no remote recipients, so no outbound connection was opened
	assert.Empty(t, n.pool.conns)
}

func TestNode_SubscribeDeclaresSelfTopic(t *testing.T) {
	n := newTestNode(t)
	n.Subscribe("T", func(string, string) {})
	assert.Equal(t, []string{"T"}, n.Info().Self.SubscribedTopics)
}

func TestNode_TwoNodeDelivery(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)

	rec := &recorder{}
	b.Subscribe("T", rec.handler)
	b.AddKnownNode(a.PeerID().IP, a.PeerID().Port)

	// B's interest in T reaches A via gossip.
	require.Eventually(t, func() bool {
		desc, ok := a.Info().Descriptor(b.PeerID())
		return ok && desc.HasTopic("T")
	}, waitFor, tick)

	a.Publish("T", "hello")

	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, waitFor, tick)
	assert.Equal(t, core.Message{Topic: "T", Content: "hello"}, rec.all()[0])
}

func TestNode_TransitiveDiscovery(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	c := newTestNode(t)

	a.AddKnownNode(b.PeerID().IP, b.PeerID().Port)
	c.AddKnownNode(b.PeerID().IP, b.PeerID().Port)

	require.Eventually(t, func() bool {
		return a.Info().Contains(c.PeerID()) && c.Info().Contains(a.PeerID())
	}, waitFor, tick)
}

func TestNode_ReconcileIsMutual(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)

	b.view.addKnownNode(a.PeerID(), nil)
	require.NoError(t, b.reconcile(a.PeerID()))

	assert.True(t, b.Info().Contains(a.PeerID()))
	assert.True(t, a.Info().Contains(b.PeerID()))
}

func TestNode_ReconcileAdoptsRemoteTopics(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	a.Subscribe("T", func(string, string) {})

	b.view.addKnownNode(a.PeerID(), nil)
	require.NoError(t, b.reconcile(a.PeerID()))

	// interest propagates transitively as declared interest, even with
	// no local handler on B
	desc, ok := b.Info().Descriptor(a.PeerID())
	require.True(t, ok)
	assert.True(t, desc.HasTopic("T"))
	assert.Contains(t, b.Info().Self.SubscribedTopics, "T")
}

func TestNode_PeerEvictedOnDeadSend(t *testing.T) {
	// gossip disabled so only the publish path can evict
	a := newTestNode(t, WithGossipInterval(time.Hour))

	// grab a port with nothing listening on it
	listener, err := gonet.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadPort := listener.Addr().(*gonet.TCPAddr).Port
	require.NoError(t, listener.Close())

	a.AddKnownNode("127.0.0.1", deadPort, "T")
	a.Publish("T", "hello")

	dead := core.NewPeerID("127.0.0.1", deadPort)
	assert.False(t, a.Info().Contains(dead))
	assert.False(t, a.pool.has(dead))
}

func TestNode_PayloadWithBlankLinesSurvivesFraming(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)

	rec := &recorder{}
	b.Subscribe("T", rec.handler)
	a.AddKnownNode(b.PeerID().IP, b.PeerID().Port, "T")

	payload := "line1\r\n\r\nline2"
	a.Publish("T", payload)

	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, waitFor, tick)
	assert.Equal(t, payload, rec.all()[0].Content)
}

func TestNode_MalformedFrameGets404AndConnectionContinues(t *testing.T) {
	n := newTestNode(t)
	rec := &recorder{}
	n.Subscribe("T", rec.handler)

	conn, err := gonet.Dial("tcp", n.PeerID().Addr())
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	_, err = conn.Write([]byte("garbage" + Sentinel))
	require.NoError(t, err)

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	count, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:count]), "404 Not Found")

	// the same connection still carries later frames
	_, err = conn.Write(publishFrame(n.PeerID(), "T", "still works"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, waitFor, tick)
	assert.Equal(t, "still works", rec.all()[0].Content)
}

func TestNode_UnknownTopicSilentlyDropped(t *testing.T) {
	n := newTestNode(t)

	conn, err := gonet.Dial("tcp", n.PeerID().Addr())
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	_, err = conn.Write(publishFrame(n.PeerID(), "nobody-listens", "x"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	count, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:count]), "200 OK")
}

func TestNode_BindContention(t *testing.T) {
	first, err := NewNode(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	port := first.PeerID().Port

	// the second node cannot bind until the first releases the port
	type result struct {
		node *Node
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		n, err := NewNode(
			context.Background(),
			"127.0.0.1",
			port,
			WithBindRetryInterval(20*time.Millisecond),
		)
		resultCh <- result{node: n, err: err}
	}()

	select {
	case <-resultCh:
		t.Fatal("second node bound while the port was still held")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, first.Close())

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.Equal(t, port, res.node.PeerID().Port)
		require.NoError(t, res.node.Close())
	case <-time.After(waitFor):
		t.Fatal("second node never bound after the port was released")
	}
}

func TestNode_FetchInfoRegistersSender(t *testing.T) {
	n := newTestNode(t)
	n.Subscribe("T", func(string, string) {})

	sender := core.View{
		Self: core.NewPeerDescriptor(core.NewPeerID("10.9.9.9", 4242), "remote-topic"),
	}
	view, err := FetchInfo(n.PeerID(), sender, waitFor)
	require.NoError(t, err)

	// the answered view is the node's own
	assert.Equal(t, n.PeerID(), view.Self.PeerID)
	assert.Contains(t, view.Self.SubscribedTopics, "T")

	// and the sender was merged into the node's view
	desc, ok := n.Info().Descriptor(core.NewPeerID("10.9.9.9", 4242))
	require.True(t, ok)
	assert.Equal(t, []string{"remote-topic"}, desc.SubscribedTopics)
}

func TestNode_SendPublishDelivers(t *testing.T) {
	n := newTestNode(t)
	rec := &recorder{}
	n.Subscribe("T", rec.handler)

	require.NoError(t, SendPublish(n.PeerID(), "T", "hello", waitFor))
	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, waitFor, tick)
}

func TestNode_MessageEventsChannel(t *testing.T) {
	n := newTestNode(t, WithMessageEvents())
	n.Subscribe("T", func(string, string) {})

	require.True(t, n.Events().Messages.HasValue())
	messages, err := n.Events().Messages.Value().Subscribe()
	require.NoError(t, err)

	n.Publish("T", "hello")

	select {
	case msg := <-messages:
		assert.Equal(t, core.Message{Topic: "T", Content: "hello"}, msg)
	case <-time.After(waitFor):
		t.Fatal("no message event received")
	}
}

func TestNode_InfoJSONUsesListForm(t *testing.T) {
	n := newTestNode(t)
	n.AddKnownNode("10.0.0.2", 5001, "T")

	data, err := n.InfoJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"known_nodes": [`)

	view, err := parseView(data)
	require.NoError(t, err)
	assert.True(t, view.Contains(core.NewPeerID("10.0.0.2", 5001)))
}
