/*
 * Persistence collaborator seam
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
	"time"

	"github.com/google/uuid"
)

// Store is the narrow persistence collaborator the engine treats as
// optional (spec section 6): relational-store CRUD for channels and
// messages, nothing else. internal/store implements this against
// Postgres; Noop satisfies it when no database is configured.
type Store interface {
	EnsureChannel(ctx context.Context, name string) error
	SetTopic(ctx context.Context, channel, topic, setBy string) error
	ListChannels(ctx context.Context) ([]ChannelInfo, error)
	InsertMessage(ctx context.Context, id uuid.UUID, channel, senderNick, content string) error
	InsertDM(ctx context.Context, id uuid.UUID, senderNick, targetNick, content string) error
	FetchChannelHistory(ctx context.Context, channel string, before *time.Time, limit int) ([]HistoryMessage, bool, error)
}
