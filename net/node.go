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
Package net implements the gossip node: a symmetric peer that publishes on
topics, subscribes to topics, and reconciles its membership view with
other peers over a length-delimited text protocol on TCP.
*/
package net

import (
	"context"
	"encoding/json"
	gonet "net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcenetwork/immutable"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/events"
	"github.com/sourcenetwork/gossipmesh/logging"
)

var log = logging.MustNewLogger("net")

const (
	// DefaultPort is the TCP port a node listens on unless configured
	// otherwise.
	DefaultPort = 5000

	// AutoHost selects the local address used to reach the public
	// internet, falling back to loopback.
	AutoHost = "auto"

	defaultGossipInterval    = time.Second
	defaultDialTimeout       = 5 * time.Second
	defaultIOTimeout         = 5 * time.Second
	defaultBindRetryInterval = 5 * time.Second

	// maxInfoResponseSize is what legacy peers read of an info response
	// in a single chunk; larger responses break them.
	maxInfoResponseSize = 1024

	eventBufferSize = 100
)

// Events exposes the node's optional event channels.
type Events struct {
	// Messages carries every locally delivered payload when the node was
	// created with WithMessageEvents.
	Messages immutable.Option[*events.Channel[core.Message]]
}

// Node is a gossipmesh peer. It serves inbound frames, runs the periodic
// reconciliation, and fans published payloads out to interested peers.
type Node struct {
	view *view
	subs *subscriptions
	pool *connPool

	listener gonet.Listener

	// inbound connections currently owned by handlers, closed on shutdown
	// so draining does not wait on idle remote ends.
	inboundMu sync.Mutex
	inbound   map[gonet.Conn]struct{}

	gossipInterval    time.Duration
	dialTimeout       time.Duration
	ioTimeout         time.Duration
	bindRetryInterval time.Duration

	events Events

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NodeOpt configures a Node.
type NodeOpt func(*Node)

// WithGossipInterval overrides the reconciliation period.
func WithGossipInterval(interval time.Duration) NodeOpt {
	return func(n *Node) {
		n.gossipInterval = interval
	}
}

// WithBindRetryInterval overrides the backoff between bind attempts.
func WithBindRetryInterval(interval time.Duration) NodeOpt {
	return func(n *Node) {
		n.bindRetryInterval = interval
	}
}

// WithMessageEvents enables the Events().Messages channel.
func WithMessageEvents() NodeOpt {
	return func(n *Node) {
		n.events.Messages = immutable.Some(events.New[core.Message](eventBufferSize))
	}
}

// NewNode creates a node and binds its listener. The host "auto" resolves
// the local outbound address. Binding retries indefinitely on failure
// until the context is cancelled; a port of 0 binds an ephemeral port and
// adopts it as the node identity.
func NewNode(ctx context.Context, host string, port int, opts ...NodeOpt) (*Node, error) {
	if host == AutoHost {
		host = localIP()
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Node{
		view:              newView(core.NewPeerID(host, port)),
		subs:              newSubscriptions(),
		inbound:           make(map[gonet.Conn]struct{}),
		gossipInterval:    defaultGossipInterval,
		dialTimeout:       defaultDialTimeout,
		ioTimeout:         defaultIOTimeout,
		bindRetryInterval: defaultBindRetryInterval,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.pool = newConnPool(n.dialTimeout, n.ioTimeout)

	listener, err := n.listenWithRetry(ctx, gonet.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		cancel()
		return nil, err
	}
	n.listener = listener

	if port == 0 {
		if tcpAddr, ok := listener.Addr().(*gonet.TCPAddr); ok {
			n.view.setSelfID(core.NewPeerID(host, tcpAddr.Port))
		}
	}

	return n, nil
}

// Start launches the accept loop and the gossip ticker.
func (n *Node) Start() {
	n.wg.Add(2)
	go n.acceptLoop()
	go n.gossipLoop()
}

// Close stops the loops, closes the listener and every pooled connection,
// and waits for the handlers to drain.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		n.cancel()
		err = n.listener.Close()
		n.pool.closeAll()
		n.inboundMu.Lock()
		for conn := range n.inbound {
			conn.Close() //nolint:errcheck
		}
		n.inboundMu.Unlock()
		n.wg.Wait()
		if n.events.Messages.HasValue() {
			n.events.Messages.Value().Close()
		}
	})
	return err
}

// PeerID returns the node's own identity.
func (n *Node) PeerID() core.PeerID {
	return n.view.selfID()
}

// Events returns the node's event channels.
func (n *Node) Events() Events {
	return n.events
}

// Subscribe registers a handler for the topic and declares the interest
// on the self-descriptor so remote publishers learn of it on the next
// gossip round. Subscribing the same handler twice delivers twice.
func (n *Node) Subscribe(topic string, handler MessageHandler) {
	if n.subs.add(topic, handler) {
		n.view.addSelfTopic(topic)
	}
}

// AddKnownNode adds a peer to the membership view, unioning any given
// topics into its descriptor. Adding the local node is a no-op.
func (n *Node) AddKnownNode(ip string, port int, topics ...string) {
	n.view.addKnownNode(core.NewPeerID(ip, port), topics)
}

// Info returns a deep snapshot of the membership view including the
// self-descriptor.
func (n *Node) Info() core.View {
	return n.view.snapshot()
}

// InfoJSON serializes the view the way it is answered on the wire:
// 4-space indentation, known_nodes in list form.
func (n *Node) InfoJSON() ([]byte, error) {
	data, err := json.MarshalIndent(n.view.snapshot(), "", "    ")
	if err != nil {
		return nil, errors.Wrap("failed to serialize view", err)
	}
	if len(data) > maxInfoResponseSize {
		log.Error(
			n.ctx,
			"Info response exceeds the single-read size legacy peers expect",
			logging.NewKV("Size", len(data)),
			logging.NewKV("Limit", maxInfoResponseSize),
		)
	}
	return data, nil
}

// Publish dispatches the payload to every known peer declaring interest
// in the topic, each on its own goroutine through the connection pool,
// then delivers it to the local subscriptions. A peer whose send fails is
// evicted from the pool and the view before Publish returns.
func (n *Node) Publish(topic string, content string) {
	if strings.Contains(content, Sentinel) {
		log.Error(
			n.ctx,
			"Payload contains the frame sentinel and will corrupt the stream",
			logging.NewKV("Topic", topic),
		)
	}

	recipients := n.view.peersInterestedIn(topic)
	var wg sync.WaitGroup
	for _, id := range recipients {
		wg.Add(1)
		go func(id core.PeerID) {
			defer wg.Done()
			if err := n.pool.send(id, publishFrame(id, topic, content)); err != nil {
				log.ErrorE(
					n.ctx,
					"Failed to send to peer, evicting",
					err,
					logging.NewKV("Peer", id),
					logging.NewKV("Topic", topic),
				)
				n.view.removeNode(id)
			}
		}(id)
	}
	wg.Wait()

	n.deliverLocal(topic, content)
}

// deliverLocal hands the payload to every matching local handler and
// offers it to the message events channel.
func (n *Node) deliverLocal(topic string, content string) {
	n.subs.deliver(topic, content)
	if n.events.Messages.HasValue() {
		n.events.Messages.Value().Publish(core.Message{ //nolint:errcheck
			Topic:   topic,
			Content: content,
		})
	}
}

// localIP resolves the local address used to reach a public IP via the
// UDP-connect trick; no packet is sent. Falls back to loopback.
func localIP() string {
	conn, err := gonet.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close() //nolint:errcheck
	if addr, ok := conn.LocalAddr().(*gonet.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
