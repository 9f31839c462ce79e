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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/net"
)

func newTestServer(t *testing.T) (*Server, *net.Node) {
	t.Helper()
	n, err := net.NewNode(
		context.Background(),
		"127.0.0.1",
		0,
		net.WithGossipInterval(time.Hour),
	)
	require.NoError(t, err)
	n.Start()
	t.Cleanup(func() {
		require.NoError(t, n.Close())
	})
	return NewServer(n, WithPeerID(n.PeerID().String())), n
}

func TestHandler_Ping(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	newHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RootPath+"/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"response":"pong"}}`, rec.Body.String())
}

func TestHandler_Info(t *testing.T) {
	s, n := newTestServer(t)
	n.AddKnownNode("10.0.0.2", 5001, "T")

	rec := httptest.NewRecorder()
	newHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RootPath+"/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view core.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, n.PeerID(), view.Self.PeerID)
	assert.True(t, view.Contains(core.NewPeerID("10.0.0.2", 5001)))
}

func TestHandler_PublishDeliversLocally(t *testing.T) {
	s, n := newTestServer(t)

	var mu sync.Mutex
	var got []core.Message
	n.Subscribe("T", func(topic string, content string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, core.Message{Topic: topic, Content: content})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, RootPath+"/publish/T", strings.NewReader("hello"))
	newHandler(s).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, core.Message{Topic: "T", Content: "hello"}, got[0])
}

func TestHandler_PublishRejectsSentinelPayload(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		RootPath+"/publish/T",
		strings.NewReader("bad"+net.Sentinel+"payload"),
	)
	newHandler(s).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AddPeer(t *testing.T) {
	s, n := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		RootPath+"/peers",
		strings.NewReader(`{"IP": "10.0.0.9", "port": 5009}`),
	)
	newHandler(s).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, n.Info().Contains(core.NewPeerID("10.0.0.9", 5009)))
}

func TestHandler_AddPeerRejectsInvalid(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []string{
		`not json`,
		`{"IP": "", "port": 5009}`,
		`{"IP": "10.0.0.9", "port": 0}`,
		`{"IP": "10.0.0.9", "port": 70000}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, RootPath+"/peers", strings.NewReader(body))
		newHandler(s).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServer_ListenAndRun(t *testing.T) {
	s, _ := newTestServer(t)
	s.Addr = "127.0.0.1:0"
	s.server.Addr = s.Addr

	require.NoError(t, s.Listen(context.Background()))
	go func() {
		_ = s.Run(context.Background())
	}()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	resp, err := http.Get("http://" + s.listener.Addr().String() + RootPath + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
