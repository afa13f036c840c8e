/*
 * Event taxonomy
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
	"time"

	"github.com/google/uuid"
)

// Event is anything the engine can push onto a session's outbound queue.
// Every concrete variant carries its own "type" field so the WebSocket
// adapter can marshal it straight to JSON with a snake-case discriminator,
// and the IRC adapter type-switches on it to produce wire lines.
type Event interface {
	EventType() string
}

// MemberInfo describes one channel member for Names/get-members responses.
type MemberInfo struct {
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar,omitempty"`
}

// ChannelInfo describes one channel for list-channels/ChannelList responses.
type ChannelInfo struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	MemberCount int    `json:"member_count"`
}

// HistoryMessage is one row of persisted channel history.
type HistoryMessage struct {
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from_nick"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageEvent struct {
	Type      string    `json:"type"`
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from_nick"`
	Target    string    `json:"target"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Avatar    *string   `json:"avatar,omitempty"`
}

func (MessageEvent) EventType() string { return "message" }

func NewMessageEvent(from, target, content string, avatar *string) MessageEvent {
	return MessageEvent{
		Type:      "message",
		ID:        uuid.New(),
		From:      from,
		Target:    target,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Avatar:    avatar,
	}
}

type JoinEvent struct {
	Type    string  `json:"type"`
	Nick    string  `json:"nick"`
	Channel string  `json:"channel"`
	Avatar  *string `json:"avatar,omitempty"`
}

func (JoinEvent) EventType() string { return "join" }

type PartEvent struct {
	Type    string  `json:"type"`
	Nick    string  `json:"nick"`
	Channel string  `json:"channel"`
	Reason  *string `json:"reason,omitempty"`
}

func (PartEvent) EventType() string { return "part" }

type QuitEvent struct {
	Type   string  `json:"type"`
	Nick   string  `json:"nick"`
	Reason *string `json:"reason,omitempty"`
}

func (QuitEvent) EventType() string { return "quit" }

type TopicChangeEvent struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	SetBy   string `json:"set_by"`
	Topic   string `json:"topic"`
}

func (TopicChangeEvent) EventType() string { return "topic_change" }

type NickChangeEvent struct {
	Type string `json:"type"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

func (NickChangeEvent) EventType() string { return "nick_change" }

type ServerNoticeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ServerNoticeEvent) EventType() string { return "server_notice" }

func NewServerNotice(message string) ServerNoticeEvent {
	return ServerNoticeEvent{Type: "server_notice", Message: message}
}

type NamesEvent struct {
	Type    string       `json:"type"`
	Channel string       `json:"channel"`
	Members []MemberInfo `json:"members"`
}

func (NamesEvent) EventType() string { return "names" }

type TopicEvent struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
}

func (TopicEvent) EventType() string { return "topic" }

type ChannelListEvent struct {
	Type     string        `json:"type"`
	Channels []ChannelInfo `json:"channels"`
}

func (ChannelListEvent) EventType() string { return "channel_list" }

type HistoryEvent struct {
	Type     string           `json:"type"`
	Channel  string           `json:"channel"`
	Messages []HistoryMessage `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func (HistoryEvent) EventType() string { return "history" }

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return "error" }

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: "error", Code: code, Message: message}
}
