/*
 * Postgres-backed persistence collaborator
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

// Package store implements engine.Store against Postgres via pgx. Schema
// is deliberately flat — one channels table, one messages table covering
// both channel messages and DMs — matching the data model the engine
// itself assumes; it does not carry over the richer edit/reaction/
// read-state schema of the system this was adapted from.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

// Postgres is the pgx-backed implementation of engine.Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) EnsureChannel(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO channels (name, topic, topic_set_by, created_at)
		 VALUES ($1, '', '', now())
		 ON CONFLICT (name) DO NOTHING`,
		name,
	)
	return err
}

func (p *Postgres) SetTopic(ctx context.Context, channel, topic, setBy string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE channels SET topic = $2, topic_set_by = $3, topic_set_at = now() WHERE name = $1`,
		channel, topic, setBy,
	)
	return err
}

// ListChannels returns every persisted channel's name and topic.
// MemberCount is always zero: membership is purely in-memory engine
// state, restored by joins rather than by this load.
func (p *Postgres) ListChannels(ctx context.Context) ([]engine.ChannelInfo, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, topic FROM channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ChannelInfo
	for rows.Next() {
		var info engine.ChannelInfo
		if err := rows.Scan(&info.Name, &info.Topic); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertMessage(ctx context.Context, id uuid.UUID, channel, senderNick, content string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (id, channel, is_channel_message, sender_nick, target_nick, content, created_at)
		 VALUES ($1, $2, true, $3, '', $4, now())`,
		id, channel, senderNick, content,
	)
	return err
}

func (p *Postgres) InsertDM(ctx context.Context, id uuid.UUID, senderNick, targetNick, content string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (id, channel, is_channel_message, sender_nick, target_nick, content, created_at)
		 VALUES ($1, '', false, $2, $3, $4, now())`,
		id, senderNick, targetNick, content,
	)
	return err
}

// FetchChannelHistory returns up to limit messages older than before (or
// the newest limit messages when before is nil), newest first, plus
// whether more remain beyond the returned page.
func (p *Postgres) FetchChannelHistory(ctx context.Context, channel string, before *time.Time, limit int) ([]engine.HistoryMessage, bool, error) {
	var rows pgx.Rows
	var err error

	// Fetch one extra row to detect whether a next page exists without a
	// second round-trip.
	if before != nil {
		rows, err = p.pool.Query(ctx,
			`SELECT id, sender_nick, content, created_at FROM messages
			 WHERE channel = $1 AND is_channel_message AND created_at < $2
			 ORDER BY created_at DESC LIMIT $3`,
			channel, *before, limit+1,
		)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT id, sender_nick, content, created_at FROM messages
			 WHERE channel = $1 AND is_channel_message
			 ORDER BY created_at DESC LIMIT $2`,
			channel, limit+1,
		)
	}
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []engine.HistoryMessage
	for rows.Next() {
		var m engine.HistoryMessage
		if err := rows.Scan(&m.ID, &m.From, &m.Content, &m.Timestamp); err != nil {
			return nil, false, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}
