/*
 * Read-only REST surface over the engine
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

// Package restapi exposes the engine's read paths (channel list, channel
// history, member list, nickname availability) over plain JSON HTTP,
// alongside the WebSocket endpoint. It never mutates engine state; every
// write command (join, part, send, set-topic) stays on the WebSocket or
// IRC adapters.
package restapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"git.sr.ht/~runxiyu/concord/internal/engine"
	"git.sr.ht/~runxiyu/concord/internal/identity"
)

// Server wraps the engine with gin handlers.
type Server struct {
	engine   *engine.Engine
	resolver *identity.Resolver
}

// NewServer constructs a Server. resolver may be nil, in which case
// /api/whoami answers 404 Not Found.
func NewServer(eng *engine.Engine, resolver *identity.Resolver) *Server {
	return &Server{engine: eng, resolver: resolver}
}

// Register wires every route this package serves onto router.
func (s *Server) Register(router gin.IRouter) {
	api := router.Group("/api")
	api.GET("/channels", s.listChannels)
	api.GET("/channels/:name/history", s.channelHistory)
	api.GET("/channels/:name/members", s.channelMembers)
	api.GET("/whoami", s.whoami)
}

func (s *Server) listChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": s.engine.ListChannels()})
}

func (s *Server) channelHistory(c *gin.Context) {
	name := c.Param("name")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return
		}
		before = &t
	}

	messages, hasMore, err := s.engine.FetchHistory(c.Request.Context(), name, before, limit)
	if err != nil {
		c.JSON(statusForKind(engine.KindOf(err)), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "has_more": hasMore})
}

func (s *Server) channelMembers(c *gin.Context) {
	members, err := s.engine.GetMembers(c.Param("name"))
	if err != nil {
		c.JSON(statusForKind(engine.KindOf(err)), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// whoami resolves the caller's identity the same way the WebSocket
// handler does, without requiring a live connection.
func (s *Server) whoami(c *gin.Context) {
	if s.resolver == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity resolution not configured"})
		return
	}
	ident, err := s.resolver.Resolve(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nickname":   ident.Nickname,
		"avatar_url": ident.AvatarURL,
		"available":  s.engine.IsNickAvailable(ident.Nickname),
	})
}

func statusForKind(kind engine.Kind) int {
	switch kind {
	case engine.KindNoSuchChannel, engine.KindNoSuchUser, engine.KindSessionNotFound:
		return http.StatusNotFound
	case engine.KindNotMember:
		return http.StatusForbidden
	case engine.KindRateLimited:
		return http.StatusTooManyRequests
	case engine.KindPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
