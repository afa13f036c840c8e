/*
 * The channel engine: process-wide session table, channel table, and the
 * connect/disconnect/join/part/send/set-topic/fetch-history/list/
 * get-members operations that mutate them.
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
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Engine is the protocol-agnostic hub both the IRC and WebSocket adapters
// call into. It holds no reference to either adapter; new transports plug
// in without touching this file.
type Engine struct {
	sessions      *ShardedMap[uuid.UUID, *Session]
	channels      *ShardedMap[string, *channel]
	nickToSession *ShardedMap[string, uuid.UUID]
	limiter       *RateLimiter
	store         Store
	logger        *log.Logger
}

func uuidHash(id uuid.UUID) uint32 {
	return StringHashFNV(id.String())
}

// New constructs an Engine with the spec's default rate-limit parameters
// (burst 10, refill 1/sec). store may be nil, in which case persistence is
// skipped and FetchHistory always returns an empty, non-paginated result.
func New(store Store, logger *log.Logger) *Engine {
	return NewWithRateLimit(store, logger, rateLimitBurst, rateLimitRefillPerSec)
}

// NewWithRateLimit constructs an Engine whose per-nickname token bucket
// uses burst/refillPerSec instead of the spec's defaults, so operators can
// size it via the scfg ratelimit{} block (see internal/config) instead of
// it being a dead, unwired knob.
func NewWithRateLimit(store Store, logger *log.Logger, burst int, refillPerSec float64) *Engine {
	if store == nil {
		store = Noop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		sessions:      NewShardedMap[uuid.UUID, *Session](uuidHash),
		channels:      NewShardedMap[string, *channel](StringHashFNV),
		nickToSession: NewShardedMap[string, uuid.UUID](StringHashFNV),
		limiter:       NewRateLimiterWithParams(burst, refillPerSec),
		store:         store,
		logger:        logger,
	}
}

// LoadChannelsFromStore loads persisted channel topics into memory at
// startup. Re-joining a channel that later emptied out in-memory does
// *not* restore the topic unless this ran first — see SPEC_FULL.md's
// discussion of this as an accepted, documented open question rather than
// a bug.
func (e *Engine) LoadChannelsFromStore(ctx context.Context) error {
	infos, err := e.store.ListChannels(ctx)
	if err != nil {
		return wrapError(KindPersistenceFailure, "loading channels from store", err)
	}
	for _, info := range infos {
		ch := newChannel(info.Name)
		ch.topic = info.Topic
		e.channels.Store(info.Name, ch)
	}
	e.logger.Printf("loaded %d channels from store", len(infos))
	return nil
}

// Connect registers a new session. If nickname is already registered, the
// stale session is disconnected first so the caller's registration always
// succeeds.
func (e *Engine) Connect(nickname string, transport Protocol, avatar *string) (*Session, error) {
	if err := validateNickname(nickname); err != nil {
		return nil, err
	}

	if oldID, ok := e.nickToSession.Load(nickname); ok {
		e.logger.Printf("replacing stale session for reconnecting nick %q", nickname)
		e.Disconnect(oldID)
	}

	session := newSession(nickname, transport, avatar)
	e.sessions.Store(session.ID, session)
	e.nickToSession.Store(nickname, session.ID)

	e.logger.Printf("session %s connected as %q over %s", session.ID, nickname, transport)
	return session, nil
}

// Disconnect removes a session from the table and every channel it was a
// member of, broadcasting Quit to each channel's remaining members.
// Idempotent: disconnecting an unknown or already-removed session id is a
// silent no-op.
func (e *Engine) Disconnect(id uuid.UUID) {
	session, ok := e.sessions.LoadAndDelete(id)
	if !ok {
		return
	}
	e.nickToSession.DeleteIf(session.Nickname, func(sid uuid.UUID) bool { return sid == id })
	e.limiter.Forget(session.Nickname)

	quit := QuitEvent{Type: "quit", Nick: session.Nickname}

	for _, name := range session.joinedChannels() {
		ch, ok := e.channels.Load(name)
		if !ok {
			continue
		}
		ch.removeMember(id)
		e.broadcastToChannel(ch, quit, id)
		e.channels.DeleteIf(name, func(c *channel) bool { return c.isEmpty() })
	}

	session.close()
	e.logger.Printf("session %s (%q) disconnected", id, session.Nickname)
}

// Join adds a session to a channel, lazily creating the channel record,
// and sends the joiner its current Topic and Names.
func (e *Engine) Join(id uuid.UUID, channelName string) error {
	name := canonicalizeChannel(channelName)
	if err := validateChannelName(name); err != nil {
		return err
	}

	session, ok := e.sessions.Load(id)
	if !ok {
		return newError(KindSessionNotFound, "session not found")
	}

	ch := e.channels.LoadOrCreate(name, func() *channel { return newChannel(name) })
	ch.addMember(id)
	session.addChannel(name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.EnsureChannel(ctx, name); err != nil {
			e.logger.Printf("warn: failed to persist channel %q: %v", name, err)
		}
	}()

	e.broadcastToChannel(ch, JoinEvent{
		Type:    "join",
		Nick:    session.Nickname,
		Channel: name,
		Avatar:  session.Avatar,
	}, uuid.Nil)

	topic, _ := ch.getTopic()
	session.Send(TopicEvent{Type: "topic", Channel: name, Topic: topic})
	session.Send(NamesEvent{Type: "names", Channel: name, Members: e.memberInfos(ch)})

	return nil
}

// Part removes a session from a channel. The parting session receives the
// Part event itself (for client-side confirmation), then it is broadcast
// to the remaining members. The channel record is dropped if membership
// is now empty.
func (e *Engine) Part(id uuid.UUID, channelName string, reason *string) error {
	name := canonicalizeChannel(channelName)

	session, ok := e.sessions.Load(id)
	if !ok {
		return newError(KindSessionNotFound, "session not found")
	}

	ch, ok := e.channels.Load(name)
	if !ok || !ch.removeMember(id) {
		return newError(KindNotMember, "not in channel "+name)
	}

	session.removeChannel(name)

	partEvent := PartEvent{Type: "part", Nick: session.Nickname, Channel: name, Reason: reason}
	session.Send(partEvent)
	e.broadcastToChannel(ch, partEvent, id)

	e.channels.DeleteIf(name, func(c *channel) bool { return c.isEmpty() })

	return nil
}

// SendMessage validates and rate-limits a message, then either broadcasts
// it to a channel (excluding the sender) or delivers it to a single DM
// target. Persistence is fire-and-forget in both cases.
func (e *Engine) SendMessage(id uuid.UUID, target, content string) error {
	if err := validateMessageContent(content); err != nil {
		return err
	}

	session, ok := e.sessions.Load(id)
	if !ok {
		return newError(KindSessionNotFound, "session not found")
	}

	if !e.limiter.Allow(session.Nickname) {
		return newError(KindRateLimited, "rate limit exceeded")
	}

	event := NewMessageEvent(session.Nickname, target, content, session.Avatar)

	if len(target) > 0 && target[0] == '#' {
		name := canonicalizeChannel(target)
		ch, ok := e.channels.Load(name)
		if !ok {
			return newError(KindNoSuchChannel, "no such channel: "+name)
		}
		if !ch.hasMember(id) {
			return newError(KindNotMember, "you are not in channel "+name)
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.store.InsertMessage(ctx, event.ID, name, session.Nickname, content); err != nil {
				e.logger.Printf("warn: failed to persist message %s: %v", event.ID, err)
			}
		}()

		e.broadcastToChannel(ch, event, id)
		return nil
	}

	targetID, ok := e.nickToSession.Load(target)
	if !ok {
		return newError(KindNoSuchUser, "no such user: "+target)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.InsertDM(ctx, event.ID, session.Nickname, target, content); err != nil {
			e.logger.Printf("warn: failed to persist DM %s: %v", event.ID, err)
		}
	}()

	if targetSession, ok := e.sessions.Load(targetID); ok {
		if !targetSession.Send(event) {
			e.logger.Printf("warn: failed to deliver DM to session %s (queue closed)", targetID)
		}
	}
	return nil
}

// SetTopic updates a channel's topic and broadcasts TopicChange to every
// member.
func (e *Engine) SetTopic(id uuid.UUID, channelName, topic string) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	name := canonicalizeChannel(channelName)

	session, ok := e.sessions.Load(id)
	if !ok {
		return newError(KindSessionNotFound, "session not found")
	}

	ch, ok := e.channels.Load(name)
	if !ok {
		return newError(KindNoSuchChannel, "no such channel: "+name)
	}
	if !ch.hasMember(id) {
		return newError(KindNotMember, "you are not in channel "+name)
	}

	ch.setTopic(topic, session.Nickname)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.SetTopic(ctx, name, topic, session.Nickname); err != nil {
			e.logger.Printf("warn: failed to persist topic for %q: %v", name, err)
		}
	}()

	e.broadcastToChannel(ch, TopicChangeEvent{
		Type:    "topic_change",
		Channel: name,
		SetBy:   session.Nickname,
		Topic:   topic,
	}, uuid.Nil)

	return nil
}

// FetchHistory is a pure read-through to the store. With no store
// configured it returns an empty, non-paginated result.
func (e *Engine) FetchHistory(ctx context.Context, channelName string, before *time.Time, limit int) ([]HistoryMessage, bool, error) {
	name := canonicalizeChannel(channelName)
	messages, hasMore, err := e.store.FetchChannelHistory(ctx, name, before, limit)
	if err != nil {
		return nil, false, wrapError(KindPersistenceFailure, "fetching history", err)
	}
	return messages, hasMore, nil
}

// ListChannels snapshots the in-memory channel table.
func (e *Engine) ListChannels() []ChannelInfo {
	out := make([]ChannelInfo, 0, e.channels.Len())
	e.channels.Range(func(_ string, ch *channel) bool {
		out = append(out, ch.info())
		return true
	})
	return out
}

// GetMembers snapshots a channel's member set joined against the session
// table.
func (e *Engine) GetMembers(channelName string) ([]MemberInfo, error) {
	name := canonicalizeChannel(channelName)
	ch, ok := e.channels.Load(name)
	if !ok {
		return nil, newError(KindNoSuchChannel, "no such channel: "+name)
	}
	return e.memberInfos(ch), nil
}

// IsNickAvailable reports whether nick is free to connect with.
func (e *Engine) IsNickAvailable(nick string) bool {
	_, taken := e.nickToSession.Load(nick)
	return !taken
}

// GetSession returns a live session by id, for adapters that need to send
// a direct reply outside of a broadcast (e.g. fetch-history, list-channels
// results).
func (e *Engine) GetSession(id uuid.UUID) (*Session, bool) {
	return e.sessions.Load(id)
}

func (e *Engine) memberInfos(ch *channel) []MemberInfo {
	ids := ch.memberIDs()
	out := make([]MemberInfo, 0, len(ids))
	for _, id := range ids {
		if session, ok := e.sessions.Load(id); ok {
			out = append(out, MemberInfo{Nickname: session.Nickname, Avatar: session.Avatar})
		}
	}
	return out
}

// broadcastToChannel enqueues a clone of event on every member's outbound
// sink except exclude (uuid.Nil excludes nobody). It does not await
// delivery and holds no per-session lock across other sessions' sinks; a
// closed sink is logged and left for the next disconnect to clean up.
func (e *Engine) broadcastToChannel(ch *channel, event Event, exclude uuid.UUID) {
	for _, id := range ch.memberIDs() {
		if id == exclude {
			continue
		}
		session, ok := e.sessions.Load(id)
		if !ok {
			continue
		}
		if !session.Send(event) {
			e.logger.Printf("warn: failed to enqueue %s event on session %s (queue closed)", event.EventType(), id)
		}
	}
}
