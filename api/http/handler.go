// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/net"
)

const maxPayloadSize = 1 << 20 // 1 MiB

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Errors []string `json:"errors"`
}

func newHandler(s *Server) http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	router.Route(RootPath, func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Get("/info", s.handleInfo)
		r.Post("/publish/{topic}", s.handlePublish)
		r.Post("/peers", s.handleAddPeer)
	})

	return router
}

func (s *Server) handlePing(rw http.ResponseWriter, req *http.Request) {
	if s.peerID != "" {
		rw.Header().Set("Peer-ID", s.peerID)
	}
	sendJSON(rw, http.StatusOK, dataResponse{
		Data: map[string]string{"response": "pong"},
	})
}

func (s *Server) handleInfo(rw http.ResponseWriter, req *http.Request) {
	sendJSON(rw, http.StatusOK, s.node.Info())
}

func (s *Server) handlePublish(rw http.ResponseWriter, req *http.Request) {
	topic := chi.URLParam(req, "topic")
	if topic == "" {
		sendError(rw, http.StatusBadRequest, "missing topic")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, maxPayloadSize))
	if err != nil {
		sendError(rw, http.StatusBadRequest, "failed to read payload")
		return
	}
	if strings.Contains(string(payload), net.Sentinel) {
		sendError(rw, http.StatusBadRequest, "payload must not contain the frame sentinel")
		return
	}

	s.node.Publish(topic, string(payload))
	sendJSON(rw, http.StatusOK, dataResponse{
		Data: map[string]string{"result": "published"},
	})
}

func (s *Server) handleAddPeer(rw http.ResponseWriter, req *http.Request) {
	var peer core.PeerID
	if err := json.NewDecoder(req.Body).Decode(&peer); err != nil {
		sendError(rw, http.StatusBadRequest, "failed to parse peer")
		return
	}
	if peer.IP == "" || peer.Port <= 0 || peer.Port > 65535 {
		sendError(rw, http.StatusBadRequest, "invalid peer address")
		return
	}

	s.node.AddKnownNode(peer.IP, peer.Port)
	sendJSON(rw, http.StatusOK, dataResponse{
		Data: map[string]string{"result": "added"},
	})
}

func sendJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		log.ErrorE(context.Background(), "Failed to encode API response", err)
	}
}

func sendError(rw http.ResponseWriter, status int, messages ...string) {
	sendJSON(rw, status, errorResponse{Errors: messages})
}
