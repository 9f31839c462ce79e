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
	"sync"

	"github.com/sourcenetwork/gossipmesh/logging"
)

// MessageHandler receives one payload published on a topic. Handlers run
// on the delivering goroutine and must not block indefinitely.
type MessageHandler func(topic string, content string)

// subscriptions maps topics to their locally registered handlers, in
// registration order. Registering the same handler twice delivers twice.
type subscriptions struct {
	mu       sync.RWMutex
	handlers map[string][]MessageHandler
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		handlers: make(map[string][]MessageHandler),
	}
}

// add appends the handler to the topic's list and reports whether it is
// the first subscription to that topic.
func (s *subscriptions) add(topic string, handler MessageHandler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.handlers[topic]) == 0
	s.handlers[topic] = append(s.handlers[topic], handler)
	return first
}

func (s *subscriptions) has(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[topic]) > 0
}

// deliver invokes every handler registered for topic, in registration
// order. A panicking handler does not prevent the remaining handlers from
// running. An unknown topic is a silent no-op.
func (s *subscriptions) deliver(topic string, content string) {
	s.mu.RLock()
	handlers := append([]MessageHandler{}, s.handlers[topic]...)
	s.mu.RUnlock()

	for _, handler := range handlers {
		invoke(handler, topic, content)
	}
}

func invoke(handler MessageHandler, topic string, content string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(
				context.Background(),
				"Recovered panicking subscription handler",
				logging.NewKV("Topic", topic),
				logging.NewKV("Panic", r),
			)
		}
	}()
	handler(topic, content)
}
