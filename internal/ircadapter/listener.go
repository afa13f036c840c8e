/*
 * IRC TCP accept loop
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

package ircadapter

import (
	"context"
	"errors"
	"log"
	"net"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

// ListenAndServe binds bindAddr and accepts IRC connections until ctx is
// cancelled, spawning one goroutine per connection. It returns nil once
// ctx cancellation closes the listener; any other accept error is logged
// and the loop keeps accepting.
func ListenAndServe(ctx context.Context, bindAddr string, eng *engine.Engine, logger *log.Logger) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", bindAddr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	logger.Printf("IRC listener started on %s", bindAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Printf("warn: failed to accept IRC connection: %v", err)
			continue
		}
		go HandleConnection(conn, eng, logger)
	}
}
