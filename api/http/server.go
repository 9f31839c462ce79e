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
Package http provides the operator HTTP API. It is a thin external
collaborator over the node's four operations: publish, subscribe,
add-known-node, and get-info.
*/
package http

import (
	"context"
	gonet "net"
	"net/http"

	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
	"github.com/sourcenetwork/gossipmesh/net"
)

var log = logging.MustNewLogger("http")

// RootPath is the path prefix of every API route.
const RootPath = "/api/v0"

// Server serves the node HTTP API.
type Server struct {
	node *net.Node

	Addr     string
	peerID   string
	listener gonet.Listener
	server   *http.Server
}

// NewServer instantiates a new server with the given node and options.
func NewServer(n *net.Node, options ...func(*Server)) *Server {
	s := &Server{
		node: n,
		Addr: "localhost:9181",
	}

	for _, opt := range options {
		opt(s)
	}

	s.server = &http.Server{
		Addr:    s.Addr,
		Handler: newHandler(s),
	}

	return s
}

// WithAddress sets the address the server listens on.
func WithAddress(addr string) func(*Server) {
	return func(s *Server) {
		s.Addr = addr
	}
}

// WithPeerID sets the peer identity reported alongside API responses.
func WithPeerID(id string) func(*Server) {
	return func(s *Server) {
		s.peerID = id
	}
}

// Listen binds the server's TCP listener.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := gonet.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrap("failed to listen on API address", err)
	}
	s.listener = listener
	return nil
}

// Run serves the API until the listener is closed. Listen must have been
// called first.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	log.Info(ctx, "Serving node API", logging.NewKV("Address", s.listener.Addr().String()))
	return s.server.Serve(s.listener)
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.server.Close()
}
