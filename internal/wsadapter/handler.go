/*
 * WebSocket upgrade and duplex event loop
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

package wsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"git.sr.ht/~runxiyu/concord/internal/engine"
	"git.sr.ht/~runxiyu/concord/internal/identity"
)

// Handler upgrades HTTP requests to WebSocket connections and bridges them
// to the engine.
type Handler struct {
	engine   *engine.Engine
	resolver *identity.Resolver
	logger   *log.Logger
}

// NewHandler constructs a Handler. resolver decides which nickname an
// upgrade request is allowed to connect as.
func NewHandler(eng *engine.Engine, resolver *identity.Resolver, logger *log.Logger) *Handler {
	return &Handler{engine: eng, resolver: resolver, logger: logger}
}

// ServeHTTP implements http.Handler, upgrading the request and running the
// connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ident, err := h.resolver.Resolve(req)
	if err != nil {
		http.Error(w, "nickname required: "+err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		Subprotocols: []string{"concord1"},
	})
	if err != nil {
		h.logger.Printf("warn: websocket accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	session, err := h.engine.Connect(ident.Nickname, engine.ProtocolWebSocket, ident.AvatarURL)
	if err != nil {
		h.logger.Printf("warn: websocket connect rejected for %q: %v", ident.Nickname, err)
		_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	h.runConnection(req.Context(), conn, session)
}

// errFrame carries the result of one c.Read call from the reader goroutine
// to the duplex select loop, mirroring the teacher's reader-goroutine
// pattern (ws.go's errbytes_t) generalized to JSON frames.
type errFrame struct {
	data []byte
	err  error
}

func (h *Handler) runConnection(ctx context.Context, conn *websocket.Conn, session *engine.Session) {
	defer h.engine.Disconnect(session.ID)

	recv := make(chan errFrame, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				recv <- errFrame{err: err}
				return
			}
			recv <- errFrame{data: data}
		}
	}()

	events := session.Events()

	for {
		select {
		case frame := <-recv:
			if frame.err != nil {
				return
			}
			h.handleFrame(ctx, conn, session, frame.data)
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, event); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, conn *websocket.Conn, session *engine.Session, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.logger.Printf("warn: invalid client message from %s: %v", session.ID, err)
		return
	}

	if err := h.dispatch(ctx, session, cmd); err != nil {
		h.logger.Printf("warn: command %q failed for session %s: %v", cmd.Type, session.ID, err)
		session.Send(engine.NewErrorEvent(engine.KindOf(err).String(), err.Error()))
	}
}

func (h *Handler) dispatch(ctx context.Context, session *engine.Session, cmd command) error {
	switch cmd.Type {
	case cmdSendMessage:
		return h.engine.SendMessage(session.ID, cmd.Channel, cmd.Content)
	case cmdJoinChannel:
		return h.engine.Join(session.ID, cmd.Channel)
	case cmdPartChannel:
		return h.engine.Part(session.ID, cmd.Channel, cmd.Reason)
	case cmdSetTopic:
		return h.engine.SetTopic(session.ID, cmd.Channel, cmd.Topic)
	case cmdFetchHistory:
		return h.dispatchFetchHistory(ctx, session, cmd)
	case cmdListChannels:
		session.Send(engine.ChannelListEvent{Type: "channel_list", Channels: h.engine.ListChannels()})
		return nil
	case cmdGetMembers:
		members, err := h.engine.GetMembers(cmd.Channel)
		if err != nil {
			return err
		}
		session.Send(engine.NamesEvent{Type: "names", Channel: cmd.Channel, Members: members})
		return nil
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

func (h *Handler) dispatchFetchHistory(ctx context.Context, session *engine.Session, cmd command) error {
	limit := defaultHistoryLimit
	if cmd.Limit != nil {
		limit = *cmd.Limit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var before *time.Time
	if cmd.Before != nil {
		parsed, err := time.Parse(time.RFC3339Nano, *cmd.Before)
		if err != nil {
			return err
		}
		before = &parsed
	}

	messages, hasMore, err := h.engine.FetchHistory(ctx, cmd.Channel, before, limit)
	if err != nil {
		return err
	}
	session.Send(engine.HistoryEvent{
		Type:     "history",
		Channel:  cmd.Channel,
		Messages: messages,
		HasMore:  hasMore,
	})
	return nil
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event engine.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
