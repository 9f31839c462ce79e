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
	"encoding/json"
	gonet "net"
	"time"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
)

// gossipLoop runs the periodic reconciliation: every tick it picks one
// peer uniformly at random from the current view and exchanges views with
// it. An empty view skips the round.
func (n *Node) gossipLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.gossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			id, ok := n.view.randomPeer()
			if !ok {
				continue
			}
			if err := n.reconcile(id); err != nil {
				log.ErrorE(
					n.ctx,
					"Reconciliation failed, evicting peer",
					err,
					logging.NewKV("Peer", id),
				)
			}
		}
	}
}

// reconcile performs one gossip exchange with the given peer over a fresh
// one-shot connection: it sends the local view, reads the peer's view
// back, and merges it. The queried peer is added with the topics it
// declared for itself, every transitive peer it named is added (skipping
// self), and each topic the peer declares is also unioned into the local
// self-descriptor, so interest propagates transitively even without a
// local handler for it. On any I/O or parse failure the peer is evicted
// from the view and the pool.
func (n *Node) reconcile(id core.PeerID) error {
	remote, err := exchangeInfo(id, n.view.snapshot(), n.dialTimeout, n.ioTimeout)
	if err != nil {
		n.view.removeNode(id)
		n.pool.evict(id)
		return err
	}

	n.view.addKnownNode(id, remote.Self.SubscribedTopics)
	for _, desc := range remote.KnownNodes {
		if desc.PeerID == n.view.selfID() {
			continue
		}
		n.view.addKnownNode(desc.PeerID, desc.SubscribedTopics)
	}
	for _, topic := range remote.Self.SubscribedTopics {
		n.view.addSelfTopic(topic)
	}
	return nil
}

// exchangeInfo sends one info request carrying the given view to the
// target peer and parses the view it answers with. The response is not
// sentinel-terminated; bytes are accumulated until they parse as JSON or
// the read deadline fires.
func exchangeInfo(
	target core.PeerID,
	local core.View,
	dialTimeout time.Duration,
	ioTimeout time.Duration,
) (core.View, error) {
	body, err := json.Marshal(local)
	if err != nil {
		return core.View{}, errors.Wrap("failed to serialize local view", err)
	}

	conn, err := gonet.DialTimeout("tcp", target.Addr(), dialTimeout)
	if err != nil {
		return core.View{}, errors.Wrap("failed to connect for reconciliation", err)
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.SetWriteDeadline(time.Now().Add(ioTimeout)); err != nil {
		return core.View{}, errors.Wrap("failed to set write deadline", err)
	}
	if _, err := conn.Write(infoRequestFrame(body)); err != nil {
		return core.View{}, errors.Wrap("failed to send info request", err)
	}

	// The response may arrive split across multiple reads; keep reading
	// until the accumulated bytes parse or the deadline expires.
	deadline := time.Now().Add(ioTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return core.View{}, errors.Wrap("failed to set read deadline", err)
	}
	var response []byte
	buf := make([]byte, readBufferSize)
	for {
		count, readErr := conn.Read(buf)
		if count > 0 {
			response = append(response, buf[:count]...)
			if remote, err := parseView(response); err == nil {
				return remote, nil
			}
		}
		if readErr != nil {
			if len(response) > 0 {
				if remote, err := parseView(response); err == nil {
					return remote, nil
				}
			}
			return core.View{}, errors.Wrap("failed to read info response", readErr)
		}
	}
}
