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
	"bytes"
	"fmt"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/sourcenetwork/gossipmesh/core"
	"github.com/sourcenetwork/gossipmesh/errors"
)

// Sentinel terminates every inbound frame on the wire. Payloads must not
// contain it; callers with arbitrary binary payloads pre-encode (base64).
const Sentinel = "END238973"

const (
	methodGet  = "GET"
	methodPost = "POST"

	infoTarget = "/info"

	statusOK       = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n"
	statusNotFound = "HTTP/1.1 404 Not Found\r\n\r\n"

	headerBodySeparator = "\r\n\r\n"
)

var sentinelBytes = []byte(Sentinel)

// frameScanner accumulates bytes from a connection and splits off complete
// sentinel-terminated frames, retaining the tail for subsequent frames on
// the same connection. A partial frame left at EOF is discarded by simply
// dropping the scanner.
type frameScanner struct {
	buf []byte
}

func (s *frameScanner) append(p []byte) {
	s.buf = append(s.buf, p...)
}

// next returns the next complete frame, or false when no full frame is
// buffered yet.
func (s *frameScanner) next() ([]byte, bool) {
	i := bytes.Index(s.buf, sentinelBytes)
	if i < 0 {
		return nil, false
	}
	frame := s.buf[:i]
	rest := s.buf[i+len(sentinelBytes):]
	s.buf = append([]byte{}, rest...)
	return frame, true
}

// request is one parsed inbound frame. Parsing is textual and lenient:
// the first space-delimited token of the first line is the method, the
// second the target, and everything after the first blank line the body.
type request struct {
	method string
	target string
	body   string
}

var (
	errMalformedRequestLine = errors.New("malformed request line")
	errMissingBody          = errors.New("missing request body")
)

func parseRequest(frame []byte) (request, error) {
	text := string(frame)

	line := text
	if i := strings.Index(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return request{}, errMalformedRequestLine
	}

	_, body, found := strings.Cut(text, headerBodySeparator)
	if !found {
		return request{}, errMissingBody
	}

	return request{
		method: tokens[0],
		target: tokens[1],
		body:   body,
	}, nil
}

// isInfoRequest reports whether the request is a membership reconciliation
// exchange rather than a publish.
func (r request) isInfoRequest() bool {
	return r.method == methodGet && strings.HasPrefix(r.target, infoTarget)
}

// publishTopic extracts the topic from a publish target of the shape
// "/<ip>:<port>/<topic>".
func (r request) publishTopic() (string, error) {
	parts := strings.Split(strings.Trim(r.target, "/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("malformed publish target", errors.NewKV("Target", r.target))
	}
	return parts[1], nil
}

// publishFrame serializes one publish frame addressed to the given peer.
func publishFrame(to core.PeerID, topic string, content string) []byte {
	return []byte(fmt.Sprintf(
		"POST /%s:%d/%s HTTP/1.1\r\nContent-Type: text/plain\r\n\r\n%s%s",
		to.IP, to.Port, topic, content, Sentinel,
	))
}

// infoRequestFrame serializes one reconciliation request carrying the
// sender's view.
func infoRequestFrame(view []byte) []byte {
	frame := make([]byte, 0, len(view)+len("GET /info\r\n\r\n")+len(Sentinel))
	frame = append(frame, "GET /info\r\n\r\n"...)
	frame = append(frame, view...)
	frame = append(frame, Sentinel...)
	return frame
}

var viewParserPool fastjson.ParserPool

// parseView parses a JSON view from the wire. known_nodes is accepted in
// both list form and the legacy object form keyed by a tuple-string.
func parseView(body []byte) (core.View, error) {
	parser := viewParserPool.Get()
	defer viewParserPool.Put(parser)

	root, err := parser.ParseBytes(body)
	if err != nil {
		return core.View{}, errors.Wrap("failed to parse view JSON", err)
	}

	self, err := descriptorFromValue(root.Get("self"))
	if err != nil {
		return core.View{}, errors.Wrap("failed to parse self descriptor", err)
	}

	view := core.View{Self: self}

	known := root.Get("known_nodes")
	if known == nil || known.Type() == fastjson.TypeNull {
		return view, nil
	}
	switch known.Type() {
	case fastjson.TypeArray:
		for _, item := range known.GetArray() {
			desc, err := descriptorFromValue(item)
			if err != nil {
				// skip malformed entries, keep the rest
				continue
			}
			view.KnownNodes = append(view.KnownNodes, desc)
		}
	case fastjson.TypeObject:
		obj := known.GetObject()
		obj.Visit(func(_ []byte, item *fastjson.Value) {
			desc, err := descriptorFromValue(item)
			if err != nil {
				return
			}
			view.KnownNodes = append(view.KnownNodes, desc)
		})
	default:
		return core.View{}, errors.New("known_nodes is neither list nor object")
	}

	return view, nil
}

func descriptorFromValue(v *fastjson.Value) (core.PeerDescriptor, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return core.PeerDescriptor{}, errors.New("descriptor is not an object")
	}
	ip := v.GetStringBytes("IP")
	if len(ip) == 0 {
		return core.PeerDescriptor{}, errors.New("descriptor is missing IP")
	}
	port := v.Get("port")
	if port == nil || port.Type() != fastjson.TypeNumber {
		return core.PeerDescriptor{}, errors.New("descriptor is missing port")
	}

	desc := core.PeerDescriptor{
		PeerID: core.NewPeerID(string(ip), port.GetInt()),
	}
	for _, t := range v.GetArray("subscribed_topics") {
		topic := t.GetStringBytes()
		if len(topic) > 0 {
			desc.SubscribedTopics = append(desc.SubscribedTopics, string(topic))
		}
	}
	return desc, nil
}
