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
	gonet "net"
	"sync"
	"time"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
)

// connPool caches one outbound TCP connection per peer so the publish
// path amortizes connect cost across a stream of payloads. Entries are
// created lazily on first send and torn down on any I/O error. The pool
// mutex is held only across map lookups and insertions, never across
// network I/O; each entry has its own write mutex so sends to a given
// peer are serialized and therefore ordered.
type connPool struct {
	mu          sync.Mutex
	conns       map[core.PeerID]*pooledConn
	dialTimeout time.Duration
	ioTimeout   time.Duration
}

type pooledConn struct {
	mu   sync.Mutex
	conn gonet.Conn
}

func newConnPool(dialTimeout time.Duration, ioTimeout time.Duration) *connPool {
	return &connPool{
		conns:       make(map[core.PeerID]*pooledConn),
		dialTimeout: dialTimeout,
		ioTimeout:   ioTimeout,
	}
}

// send writes one frame to the peer, dialing a new connection when none
// is pooled. On any I/O error the pool entry is closed and evicted before
// returning; the caller is responsible for the matching view eviction.
func (p *connPool) send(id core.PeerID, frame []byte) error {
	pc, err := p.get(id)
	if err != nil {
		p.evict(id)
		return err
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if err := pc.conn.SetWriteDeadline(time.Now().Add(p.ioTimeout)); err != nil {
		p.evict(id)
		return errors.Wrap("failed to set write deadline", err)
	}
	if _, err := pc.conn.Write(frame); err != nil {
		p.evict(id)
		return errors.Wrap("failed to write frame", err)
	}
	return nil
}

func (p *connPool) get(id core.PeerID) (*pooledConn, error) {
	p.mu.Lock()
	if pc, ok := p.conns[id]; ok {
		p.mu.Unlock()
		return pc, nil
	}
	p.mu.Unlock()

	// Dial outside the pool mutex.
	conn, err := gonet.DialTimeout("tcp", id.Addr(), p.dialTimeout)
	if err != nil {
		return nil, errors.Wrap("failed to connect to peer", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pc, ok := p.conns[id]; ok {
		// lost the race, keep the existing entry
		conn.Close() //nolint:errcheck
		return pc, nil
	}
	pc := &pooledConn{conn: conn}
	p.conns[id] = pc
	return pc, nil
}

// evict closes and removes the peer's pooled connection, if any.
func (p *connPool) evict(id core.PeerID) {
	p.mu.Lock()
	pc, ok := p.conns[id]
	if ok {
		delete(p.conns, id)
	}
	p.mu.Unlock()
	if ok {
		pc.conn.Close() //nolint:errcheck
	}
}

func (p *connPool) has(id core.PeerID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.conns[id]
	return ok
}

// closeAll tears down every pooled connection.
func (p *connPool) closeAll() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[core.PeerID]*pooledConn)
	p.mu.Unlock()
	for _, pc := range conns {
		pc.conn.Close() //nolint:errcheck
	}
}
