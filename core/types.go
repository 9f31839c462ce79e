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
Package core defines the data model shared between the gossip node, the
command-line clients, and the HTTP API. The JSON tags on these types are
the wire schema and must not change.
*/
package core

import (
	"net"
	"strconv"
)

// PeerID uniquely identifies a peer as the pair of its address string and
// TCP port. Equality is structural on both fields.
type PeerID struct {
	IP   string `json:"IP"`
	Port int    `json:"port"`
}

// NewPeerID returns the PeerID for the given address and port.
func NewPeerID(ip string, port int) PeerID {
	return PeerID{
		IP:   ip,
		Port: port,
	}
}

// Addr returns the dialable "host:port" form of the peer identity.
func (id PeerID) Addr() string {
	return net.JoinHostPort(id.IP, strconv.Itoa(id.Port))
}

func (id PeerID) String() string {
	return id.Addr()
}

// PeerDescriptor is a peer identity together with the topics the peer has
// declared interest in. Topic sets only grow during a node's lifetime:
// the protocol carries no unsubscribe message.
type PeerDescriptor struct {
	PeerID
	SubscribedTopics []string `json:"subscribed_topics"`
}

// NewPeerDescriptor returns a descriptor for the given identity and topics.
func NewPeerDescriptor(id PeerID, topics ...string) PeerDescriptor {
	return PeerDescriptor{
		PeerID:           id,
		SubscribedTopics: topics,
	}
}

// Copy returns a deep copy of the descriptor.
func (d PeerDescriptor) Copy() PeerDescriptor {
	topics := make([]string, len(d.SubscribedTopics))
	copy(topics, d.SubscribedTopics)
	return PeerDescriptor{
		PeerID:           d.PeerID,
		SubscribedTopics: topics,
	}
}

// HasTopic returns whether the descriptor declares interest in topic.
func (d PeerDescriptor) HasTopic(topic string) bool {
	for _, t := range d.SubscribedTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// View is a snapshot of a node's membership knowledge: its own descriptor
// and every peer it currently knows about. On the wire known_nodes is
// always serialized in list form; legacy peers may send an object keyed by
// a tuple-string instead, which the wire parser accepts.
type View struct {
	Self       PeerDescriptor   `json:"self"`
	KnownNodes []PeerDescriptor `json:"known_nodes"`
}

// Descriptor returns the descriptor for the given peer and whether the
// view contains it.
func (v View) Descriptor(id PeerID) (PeerDescriptor, bool) {
	for _, d := range v.KnownNodes {
		if d.PeerID == id {
			return d, true
		}
	}
	return PeerDescriptor{}, false
}

// Contains returns whether the view knows the given peer.
func (v View) Contains(id PeerID) bool {
	_, ok := v.Descriptor(id)
	return ok
}

// Message is one payload delivered on a topic.
type Message struct {
	Topic   string
	Content string
}
