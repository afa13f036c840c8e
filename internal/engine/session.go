/*
 * Session table entries and the unbounded per-session outbound queue
 *
 * Copyright (C) 2024  Runxi Yu <https://runxiyu.org>
 * SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Protocol tags which wire transport a session was accepted over.
type Protocol int

const (
	ProtocolIRC Protocol = iota
	ProtocolWebSocket
)

func (p Protocol) String() string {
	if p == ProtocolWebSocket {
		return "websocket"
	}
	return "irc"
}

// Session is one live client connection. Its outbound queue is an unbounded
// MPSC channel: any number of engine operations may enqueue onto it
// concurrently, and exactly one consumer — the protocol adapter's writer
// task — drains it.
type Session struct {
	ID          uuid.UUID
	Nickname    string
	Transport   Protocol
	Avatar      *string
	ConnectedAt time.Time

	queue *eventQueue

	mu       sync.Mutex
	channels map[string]struct{}
}

func newSession(nickname string, transport Protocol, avatar *string) *Session {
	return &Session{
		ID:          uuid.New(),
		Nickname:    nickname,
		Transport:   transport,
		Avatar:      avatar,
		ConnectedAt: time.Now().UTC(),
		queue:       newEventQueue(),
		channels:    make(map[string]struct{}),
	}
}

// Events returns the channel the protocol adapter should range over for
// outbound events.
func (s *Session) Events() <-chan Event {
	return s.queue.Recv()
}

// Send enqueues an event for this session. It never blocks the caller on a
// slow consumer, and returns false if the session's queue has already been
// closed (the writer task exited) — the caller logs this at warn level and
// does not retry, per the broadcast contract.
func (s *Session) Send(e Event) bool {
	return s.queue.Send(e)
}

// close shuts down the outbound queue. Called once, by Engine.Disconnect.
func (s *Session) close() {
	s.queue.Close()
}

func (s *Session) addChannel(name string) {
	s.mu.Lock()
	s.channels[name] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeChannel(name string) {
	s.mu.Lock()
	delete(s.channels, name)
	s.mu.Unlock()
}

func (s *Session) joinedChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	return out
}

// eventQueue is an unbounded single-consumer, multi-producer channel of
// Events. A goroutine bridges an always-accepting input side to the
// consumer-facing output channel, spilling into a growable slice buffer
// whenever the consumer is momentarily slower than producers — this is
// what gives the queue its "unbounded" contract (spec: queues accumulate
// memory rather than block a broadcaster).
type eventQueue struct {
	in       chan Event
	out      chan Event
	closeMu  sync.Mutex
	isClosed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		in:  make(chan Event, 1),
		out: make(chan Event, 1),
	}
	go q.pump()
	return q
}

func (q *eventQueue) pump() {
	defer close(q.out)
	var buf []Event
	for {
		if len(buf) == 0 {
			e, ok := <-q.in
			if !ok {
				return
			}
			buf = append(buf, e)
			continue
		}

		select {
		case e, ok := <-q.in:
			if !ok {
				for _, pending := range buf {
					q.out <- pending
				}
				return
			}
			buf = append(buf, e)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

func (q *eventQueue) Send(e Event) (ok bool) {
	q.closeMu.Lock()
	closed := q.isClosed
	q.closeMu.Unlock()
	if closed {
		return false
	}
	defer func() {
		// The input channel may have been closed concurrently by Close;
		// sending on a closed channel panics, so treat that as a failed
		// enqueue rather than propagating the panic to the broadcaster.
		if r := recover(); r != nil {
			ok = false
		}
	}()
	q.in <- e
	return true
}

func (q *eventQueue) Recv() <-chan Event {
	return q.out
}

func (q *eventQueue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.isClosed {
		return
	}
	q.isClosed = true
	close(q.in)
}
