/*
 * concord-bench: opens many concurrent WebSocket sessions against a
 * running concordd, joins a channel, and floods it with messages.
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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

var (
	serverURL   = flag.String("url", "ws://localhost:8080/ws", "concordd WebSocket endpoint")
	channel     = flag.String("channel", "bench", "channel to join and flood")
	connections = flag.Int("n", 1000, "number of concurrent connections")
	messages    = flag.Int("m", 20, "messages each connection sends after joining")
)

var errUnexpectedStatusCode = errors.New("unexpected status code")

type outboundCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Content string `json:"content,omitempty"`
}

func send(ctx context.Context, conn *websocket.Conn, cid int, cmd outboundCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	log.Printf("%d <- %s", cid, payload)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("writing to connection %d: %w", cid, err)
	}
	return nil
}

func runConnection(cid int, wg *sync.WaitGroup) {
	defer wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := fmt.Sprintf("%s?nickname=bench-%d", *serverURL, cid)
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		log.Printf("%d: dial failed: %v", cid, err)
		return
	}
	defer conn.CloseNow()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		log.Printf("%d: %v", cid, errUnexpectedStatusCode)
		return
	}

	go func() {
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			log.Printf("%d -> %s", cid, msg)
		}
	}()

	if err := send(ctx, conn, cid, outboundCommand{Type: "join_channel", Channel: *channel}); err != nil {
		log.Printf("%d: %v", cid, err)
		return
	}

	for i := 0; i < *messages; i++ {
		cmd := outboundCommand{
			Type:    "send_message",
			Channel: *channel,
			Content: fmt.Sprintf("message %d from connection %d", i, cid),
		}
		if err := send(ctx, conn, cid, cmd); err != nil {
			log.Printf("%d: %v", cid, err)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func main() {
	flag.Parse()
	if !strings.HasPrefix(*channel, "#") {
		// send_message treats a target without '#' as a nickname (DM).
		*channel = "#" + *channel
	}

	var wg sync.WaitGroup
	wg.Add(*connections)
	for i := 0; i < *connections; i++ {
		go runConnection(i, &wg)
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()
	log.Println("bench run complete")
}
