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
	"math/rand"
	"sort"
	"sync"

	"github.com/sourcenetwork/gossipmesh/core"
)

// view is the membership view: the self-descriptor plus every known peer
// and its declared topic interests. All access is serialized on an
// internal mutex. Invariants: the self PeerID never appears as a key, and
// topic sets only grow.
type view struct {
	mu    sync.RWMutex
	self  core.PeerDescriptor
	nodes map[core.PeerID][]string
}

func newView(self core.PeerID) *view {
	return &view{
		self:  core.NewPeerDescriptor(self),
		nodes: make(map[core.PeerID][]string),
	}
}

func (v *view) selfID() core.PeerID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.self.PeerID
}

// setSelfID rebinds the self identity. Only used before the node starts,
// when binding to port 0 assigns the real port.
func (v *view) setSelfID(id core.PeerID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.self.PeerID = id
}

// addKnownNode unions the given topics into the peer's descriptor,
// inserting the peer when absent. Adding the local node is a no-op.
func (v *view) addKnownNode(id core.PeerID, topics []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id == v.self.PeerID {
		return
	}
	v.nodes[id] = unionTopics(v.nodes[id], topics)
}

// removeNode erases the peer. Idempotent.
func (v *view) removeNode(id core.PeerID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.nodes, id)
}

func (v *view) contains(id core.PeerID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.nodes[id]
	return ok
}

func (v *view) isEmpty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.nodes) == 0
}

// addSelfTopic adds the topic to the self-descriptor if not yet declared.
func (v *view) addSelfTopic(topic string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.self.SubscribedTopics = unionTopics(v.self.SubscribedTopics, []string{topic})
}

// peersInterestedIn returns every known peer declaring interest in topic.
func (v *view) peersInterestedIn(topic string) []core.PeerID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var peers []core.PeerID
	for id, topics := range v.nodes {
		for _, t := range topics {
			if t == topic {
				peers = append(peers, id)
				break
			}
		}
	}
	return peers
}

// randomPeer picks a peer uniformly at random over the current keys.
func (v *view) randomPeer() (core.PeerID, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.nodes) == 0 {
		return core.PeerID{}, false
	}
	ids := make([]core.PeerID, 0, len(v.nodes))
	for id := range v.nodes {
		ids = append(ids, id)
	}
	return ids[rand.Intn(len(ids))], true
}

// snapshot returns a deep, serializable copy of the view including the
// self-descriptor. known_nodes is ordered by address for stable output.
func (v *view) snapshot() core.View {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := core.View{
		Self:       v.self.Copy(),
		KnownNodes: make([]core.PeerDescriptor, 0, len(v.nodes)),
	}
	for id, topics := range v.nodes {
		snap.KnownNodes = append(snap.KnownNodes, core.NewPeerDescriptor(id, append([]string{}, topics...)...))
	}
	sort.Slice(snap.KnownNodes, func(i, j int) bool {
		a, b := snap.KnownNodes[i], snap.KnownNodes[j]
		if a.IP != b.IP {
			return a.IP < b.IP
		}
		return a.Port < b.Port
	})
	return snap
}

func unionTopics(existing []string, topics []string) []string {
	for _, topic := range topics {
		found := false
		for _, t := range existing {
			if t == topic {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, topic)
		}
	}
	return existing
}
