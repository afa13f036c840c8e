/*
 * Channel records
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

// channel is the in-memory record for one chat channel. Membership is
// ephemeral: the record itself is created lazily on first join and dropped
// once its member set empties. Topic and other persisted-only attributes
// survive in the store beyond the record's in-memory lifetime.
type channel struct {
	name      string
	createdAt time.Time

	mu          sync.RWMutex
	topic       string
	topicSetBy  string
	topicSetAt  time.Time
	members     map[uuid.UUID]struct{}
}

func newChannel(name string) *channel {
	return &channel{
		name:      name,
		createdAt: time.Now().UTC(),
		members:   make(map[uuid.UUID]struct{}),
	}
}

func (c *channel) addMember(id uuid.UUID) {
	c.mu.Lock()
	c.members[id] = struct{}{}
	c.mu.Unlock()
}

func (c *channel) removeMember(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[id]; !ok {
		return false
	}
	delete(c.members, id)
	return true
}

func (c *channel) hasMember(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[id]
	return ok
}

func (c *channel) memberIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	return out
}

func (c *channel) memberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

func (c *channel) isEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members) == 0
}

func (c *channel) setTopic(topic, setBy string) {
	c.mu.Lock()
	c.topic = topic
	c.topicSetBy = setBy
	c.topicSetAt = time.Now().UTC()
	c.mu.Unlock()
}

func (c *channel) getTopic() (topic, setBy string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic, c.topicSetBy
}

func (c *channel) info() ChannelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ChannelInfo{
		Name:        c.name,
		Topic:       c.topic,
		MemberCount: len(c.members),
	}
}
