/*
 * WebSocket identity resolution: optional JWT, falling back to a bare
 * nickname query parameter
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

// Package identity resolves the nickname a WebSocket upgrade request is
// allowed to connect as. The engine itself has no notion of accounts or
// tokens — this package is the narrow collaborator that sits in front of
// it, verifying a Bearer JWT against a JWKS when the operator configures
// one, and otherwise trusting the "nickname" query parameter, matching
// how the distilled specification allows either mode pending a real
// account system.
package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity is returned when a request carries neither a valid Bearer
// token nor a usable nickname parameter.
var ErrNoIdentity = errors.New("identity: no nickname or bearer token supplied")

// Claims is the minimal JWT claim set this server consults: the nickname
// a token authorizes its bearer to connect as, plus an optional avatar
// URL passed straight through to the engine's per-member avatar field.
type Claims struct {
	jwt.RegisteredClaims
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// Identity is what Resolve returns: the nickname a connection is
// authorized to use, plus an optional avatar URL. AvatarURL is nil for
// the unauthenticated nickname-query-parameter fallback, which carries no
// avatar claim.
type Identity struct {
	Nickname  string
	AvatarURL *string
}

// Resolver resolves the caller-supplied nickname for a WebSocket upgrade
// request. When jwks is nil, every request is resolved from its
// "nickname" query parameter with no verification — the unauthenticated
// mode the specification leaves as an accepted default.
type Resolver struct {
	jwks keyfunc.Keyfunc
}

// NewResolver constructs a Resolver that verifies Bearer tokens against
// jwks. Pass a nil jwks to run unauthenticated (nickname query parameter
// only).
func NewResolver(jwks keyfunc.Keyfunc) *Resolver {
	return &Resolver{jwks: jwks}
}

// Resolve extracts the identity a WebSocket upgrade request is authorized
// to use: from a verified Bearer token's "nickname"/"avatar_url" claims
// when a JWKS is configured and the request carries one, otherwise from
// the "nickname" query parameter with no avatar.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	if r.jwks != nil {
		if token := bearerToken(req); token != "" {
			return r.resolveFromToken(token)
		}
	}

	nickname := req.URL.Query().Get("nickname")
	if nickname == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity{Nickname: nickname}, nil
}

func (r *Resolver) resolveFromToken(token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, r.jwks.Keyfunc)
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, errors.New("identity: invalid token")
	}
	if claims.Nickname == "" {
		return Identity{}, errors.New("identity: token missing nickname claim")
	}
	identity := Identity{Nickname: claims.Nickname}
	if claims.AvatarURL != "" {
		identity.AvatarURL = &claims.AvatarURL
	}
	return identity, nil
}

func bearerToken(req *http.Request) string {
	const prefix = "Bearer "
	h := req.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// NewJWKS fetches and keeps fresh a remote JWKS for token verification.
// Returns a nil Keyfunc (unauthenticated mode) when jwksURL is empty.
func NewJWKS(ctx context.Context, jwksURL string) (keyfunc.Keyfunc, error) {
	if jwksURL == "" {
		return nil, nil
	}
	return keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
}
