/*
 * Per-nickname message rate limiter (spec section 4.7)
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
	"golang.org/x/time/rate"
)

const (
	rateLimitBurst       = 10
	rateLimitRefillPerSec = 1
)

// RateLimiter is a token bucket per nickname, not per session — a
// reconnect does not reset a user's bucket, so disconnect/reconnect loops
// can't be used to bypass it. Buckets are created lazily on first Allow;
// Forget, called when the owning session disconnects, drops a bucket only
// once it has refilled to capacity.
type RateLimiter struct {
	burst        int
	refillPerSec float64
	buckets      *ShardedMap[string, *rate.Limiter]
}

// NewRateLimiter constructs a limiter with the spec's default capacity
// (burst 10, refill 1/sec). Tests construct limiters with other
// parameters via NewRateLimiterWithParams.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithParams(rateLimitBurst, rateLimitRefillPerSec)
}

// NewRateLimiterWithParams constructs a limiter with a non-default burst
// and refill rate. NewWithRateLimit uses it for operator-configured sizes,
// and tests use it to exhaust a bucket quickly.
func NewRateLimiterWithParams(burst int, refillPerSec float64) *RateLimiter {
	return &RateLimiter{
		burst:        burst,
		refillPerSec: refillPerSec,
		buckets:      NewShardedMap[string, *rate.Limiter](StringHashFNV),
	}
}

// Allow consumes one token from nickname's bucket, returning false if the
// bucket is empty. It never has side effects on denial.
func (r *RateLimiter) Allow(nickname string) bool {
	limiter := r.buckets.LoadOrCreate(nickname, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(r.refillPerSec), r.burst)
	})
	return limiter.Allow()
}

// Forget drops nickname's bucket, reclaiming its memory on disconnect, but
// only when the bucket is full again: a full bucket is indistinguishable
// from the fresh one Allow would create, so a reconnect gains no tokens.
// A partly drained bucket is kept.
func (r *RateLimiter) Forget(nickname string) {
	r.buckets.DeleteIf(nickname, func(l *rate.Limiter) bool {
		return l.Tokens() >= float64(r.burst)
	})
}
