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
	"time"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
)

// FetchInfo performs a one-shot info exchange with the target peer on
// behalf of the given sender view and returns the peer's view. It is the
// client side of the reconciliation wire exchange, usable without a
// running node.
func FetchInfo(target core.PeerID, sender core.View, timeout time.Duration) (core.View, error) {
	return exchangeInfo(target, sender, timeout, timeout)
}

// SendPublish writes a single publish frame to the target peer over a
// fresh connection. The response is not read, matching the publish path
// contract.
func SendPublish(target core.PeerID, topic string, content string, timeout time.Duration) error {
	conn, err := gonet.DialTimeout("tcp", target.Addr(), timeout)
	if err != nil {
		return errors.Wrap("failed to connect to peer", err)
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return errors.Wrap("failed to set write deadline", err)
	}
	if _, err := conn.Write(publishFrame(target, topic, content)); err != nil {
		return errors.Wrap("failed to send publish frame", err)
	}
	return nil
}
