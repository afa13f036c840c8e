/*
 * No-op persistence collaborator, used when no database is configured.
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

// Noop satisfies Store by discarding every write and returning empty reads.
// Used when the server is configured with no database DSN: fetch-history
// returns an empty list, per spec.
type Noop struct{}

func (Noop) EnsureChannel(context.Context, string) error { return nil }

func (Noop) SetTopic(context.Context, string, string, string) error { return nil }

func (Noop) ListChannels(context.Context) ([]ChannelInfo, error) { return nil, nil }

func (Noop) InsertMessage(context.Context, uuid.UUID, string, string, string) error { return nil }

func (Noop) InsertDM(context.Context, uuid.UUID, string, string, string) error { return nil }

func (Noop) FetchChannelHistory(context.Context, string, *time.Time, int) ([]HistoryMessage, bool, error) {
	return nil, false, nil
}
