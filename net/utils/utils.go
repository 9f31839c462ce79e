// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package netutils parses operator-supplied peer addresses.
package netutils

import (
	gonet "net"
	"strconv"
	"strings"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
)

// ParsePeers parses a list of bootstrap peer addresses. Each entry is
// either a multiaddr of the form "/ip4/<host>/tcp/<port>" (or ip6), or a
// plain "host:port".
func ParsePeers(addrs []string) ([]core.PeerID, error) {
	peers := make([]core.PeerID, 0, len(addrs))
	for _, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		id, err := ParsePeer(addr)
		if err != nil {
			return nil, err
		}
		peers = append(peers, id)
	}
	return peers, nil
}

// ParsePeer parses a single peer address in either accepted form.
func ParsePeer(addr string) (core.PeerID, error) {
	if strings.HasPrefix(addr, "/") {
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			return core.PeerID{}, errors.Wrap("failed to parse peer multiaddr", err)
		}
		return peerIDFromMultiAddr(maddr)
	}

	host, portStr, err := gonet.SplitHostPort(addr)
	if err != nil {
		return core.PeerID{}, errors.Wrap("failed to parse peer address", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return core.PeerID{}, errors.Wrap("failed to parse peer port", err)
	}
	return core.NewPeerID(host, port), nil
}

func peerIDFromMultiAddr(maddr ma.Multiaddr) (core.PeerID, error) {
	host, err := maddr.ValueForProtocol(ma.P_IP4)
	if err != nil {
		host, err = maddr.ValueForProtocol(ma.P_IP6)
		if err != nil {
			return core.PeerID{}, errors.Wrap("peer multiaddr has no ip component", err)
		}
	}
	portStr, err := maddr.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return core.PeerID{}, errors.Wrap("peer multiaddr has no tcp component", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return core.PeerID{}, errors.Wrap("failed to parse peer port", err)
	}
	return core.NewPeerID(host, port), nil
}
