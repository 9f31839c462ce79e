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
	"time"

	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
)

const readBufferSize = 1024

// listenWithRetry binds the node's listener, retrying indefinitely with a
// backoff so a restarted node can reclaim its port from a predecessor's
// socket in TIME_WAIT. Cancelling the context aborts the retry loop.
func (n *Node) listenWithRetry(ctx context.Context, addr string) (gonet.Listener, error) {
	for {
		listener, err := gonet.Listen("tcp", addr)
		if err == nil {
			log.Info(ctx, "Listening", logging.NewKV("Address", listener.Addr().String()))
			return listener, nil
		}
		log.ErrorE(
			ctx,
			"Failed to bind, retrying",
			err,
			logging.NewKV("Address", addr),
			logging.NewKV("RetryIn", n.bindRetryInterval),
		)
		select {
		case <-ctx.Done():
			return nil, errors.Wrap("binding aborted", ctx.Err())
		case <-time.After(n.bindRetryInterval):
		}
	}
}

// acceptLoop accepts inbound connections until the listener is closed,
// handing each connection to its own goroutine.
func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			log.ErrorE(n.ctx, "Failed to accept connection", err)
			return
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}

// handleConn owns one inbound connection: it drives the codec over the
// byte stream and dispatches each complete frame until EOF or a fatal
// error. A partial frame at EOF is discarded silently.
func (n *Node) handleConn(conn gonet.Conn) {
	n.inboundMu.Lock()
	n.inbound[conn] = struct{}{}
	n.inboundMu.Unlock()
	defer func() {
		n.inboundMu.Lock()
		delete(n.inbound, conn)
		n.inboundMu.Unlock()
		conn.Close() //nolint:errcheck
	}()

	var scanner frameScanner
	buf := make([]byte, readBufferSize)
	for {
		count, err := conn.Read(buf)
		if count > 0 {
			scanner.append(buf[:count])
			for {
				frame, ok := scanner.next()
				if !ok {
					break
				}
				if !n.handleFrame(conn, frame) {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// handleFrame processes one complete frame and reports whether the
// connection should keep being read.
func (n *Node) handleFrame(conn gonet.Conn, frame []byte) bool {
	req, err := parseRequest(frame)
	if err != nil {
		n.write(conn, []byte(statusNotFound))
		return true
	}

	if req.isInfoRequest() {
		return n.handleInfoRequest(conn, req)
	}
	return n.handlePublish(conn, req)
}

// handleInfoRequest merges the sender's declared descriptor into the view
// and answers with this node's own view. An unparsable body closes the
// connection without mutating the view.
func (n *Node) handleInfoRequest(conn gonet.Conn, req request) bool {
	remote, err := parseView([]byte(req.body))
	if err != nil {
		log.ErrorE(
			n.ctx,
			"Failed to parse inbound view, closing connection",
			err,
			logging.NewKV("Remote", conn.RemoteAddr().String()),
		)
		return false
	}

	n.view.addKnownNode(remote.Self.PeerID, remote.Self.SubscribedTopics)

	response, err := n.InfoJSON()
	if err != nil {
		log.ErrorE(n.ctx, "Failed to serialize view", err)
		return false
	}
	n.write(conn, response)
	return true
}

// handlePublish extracts the topic and delivers the payload to the local
// subscriptions. A target that does not parse gets a 404; an unmatched
// topic is silently dropped. The connection continues either way.
func (n *Node) handlePublish(conn gonet.Conn, req request) bool {
	topic, err := req.publishTopic()
	if err != nil {
		n.write(conn, []byte(statusNotFound))
		return true
	}

	if n.subs.has(topic) {
		n.deliverLocal(topic, req.body)
	}
	n.write(conn, []byte(statusOK))
	return true
}

func (n *Node) write(conn gonet.Conn, response []byte) {
	if err := conn.SetWriteDeadline(time.Now().Add(n.ioTimeout)); err != nil {
		return
	}
	if _, err := conn.Write(response); err != nil {
		log.ErrorE(
			n.ctx,
			"Failed to write response",
			err,
			logging.NewKV("Remote", conn.RemoteAddr().String()),
		)
	}
}
