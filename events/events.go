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
Package events provides a small in-process broadcast channel used to hand
node events to interested consumers without coupling them to the I/O
goroutines that produce them.
*/
package events

import (
	"sync"

	"github.com/sourcenetwork/gossipmesh/errors"
)

// ErrChannelClosed is returned when publishing or subscribing on a closed
// channel.
var ErrChannelClosed = errors.New("events channel is closed")

// Subscription is a read-only stream of items from a Channel.
type Subscription[T any] <-chan T

// Channel fans published items out to every subscriber. Publishing never
// blocks: a subscriber whose buffer is full misses the item.
type Channel[T any] struct {
	mu     sync.Mutex
	subs   []chan T
	buffer int
	closed bool
}

// New creates a channel whose subscribers each buffer up to bufferSize
// items.
func New[T any](bufferSize int) *Channel[T] {
	return &Channel[T]{
		buffer: bufferSize,
	}
}

// Subscribe registers and returns a new subscription.
func (c *Channel[T]) Subscribe() (Subscription[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}
	sub := make(chan T, c.buffer)
	c.subs = append(c.subs, sub)
	return sub, nil
}

// Unsubscribe removes and closes the given subscription. Unknown
// subscriptions are ignored.
func (c *Channel[T]) Unsubscribe(sub Subscription[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if Subscription[T](s) == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			close(s)
			return
		}
	}
}

// Publish offers the item to every subscriber, skipping any whose buffer
// is full.
func (c *Channel[T]) Publish(item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	for _, sub := range c.subs {
		select {
		case sub <- item:
		default:
		}
	}
	return nil
}

// Close closes the channel and every subscription. Safe to call more than
// once.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, sub := range c.subs {
		close(sub)
	}
	c.subs = nil
}
