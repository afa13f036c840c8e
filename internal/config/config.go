/*
 * Server configuration: scfg file plus .env-seeded environment overrides
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

// Package config loads concord.scfg and applies environment overrides, the
// same fetchConfig-then-apply-env-overrides shape the teacher and the
// original Rust server both use.
package config

import (
	"os"
	"strconv"

	"git.sr.ht/~emersion/go-scfg"
	"github.com/joho/godotenv"
)

// Config is the fully resolved server configuration.
type Config struct {
	IRCListen  string
	WebListen  string
	ServerName string

	DatabaseDSN string

	JWTSecret string
	JWKSURL   string

	RatelimitCapacity     int
	RatelimitRefillPerSec float64
}

func defaults() Config {
	return Config{
		IRCListen:             "0.0.0.0:6667",
		WebListen:             "0.0.0.0:8080",
		ServerName:            "concord",
		DatabaseDSN:           "",
		JWTSecret:             "dev-secret-change-me",
		JWKSURL:               "",
		RatelimitCapacity:     10,
		RatelimitRefillPerSec: 1,
	}
}

// Load reads path as an scfg file, seeds process environment from a
// .env file in the working directory if present, then applies CONCORD_* environment
// variable overrides on top of the file's values.
func Load(path string) (Config, error) {
	cfg := defaults()

	block, err := scfg.Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyBlock(block); err != nil {
		return Config{}, err
	}

	_ = godotenv.Load() // optional; missing .env is not an error

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyBlock(block scfg.Block) error {
	for _, dir := range block {
		switch dir.Name {
		case "irc-listen":
			if len(dir.Params) > 0 {
				c.IRCListen = dir.Params[0]
			}
		case "web-listen":
			if len(dir.Params) > 0 {
				c.WebListen = dir.Params[0]
			}
		case "server-name":
			if len(dir.Params) > 0 {
				c.ServerName = dir.Params[0]
			}
		case "database":
			for _, child := range dir.Children {
				if child.Name == "dsn" && len(child.Params) > 0 {
					c.DatabaseDSN = child.Params[0]
				}
			}
		case "auth":
			for _, child := range dir.Children {
				switch child.Name {
				case "jwt-secret":
					if len(child.Params) > 0 {
						c.JWTSecret = child.Params[0]
					}
				case "jwks-url":
					if len(child.Params) > 0 {
						c.JWKSURL = child.Params[0]
					}
				}
			}
		case "ratelimit":
			for _, child := range dir.Children {
				switch child.Name {
				case "capacity":
					if len(child.Params) > 0 {
						if n, err := strconv.Atoi(child.Params[0]); err == nil {
							c.RatelimitCapacity = n
						}
					}
				case "refill-per-sec":
					if len(child.Params) > 0 {
						if f, err := strconv.ParseFloat(child.Params[0], 64); err == nil {
							c.RatelimitRefillPerSec = f
						}
					}
				}
			}
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("CONCORD_IRC_LISTEN"); ok {
		c.IRCListen = v
	}
	if v, ok := os.LookupEnv("CONCORD_WEB_LISTEN"); ok {
		c.WebListen = v
	}
	if v, ok := os.LookupEnv("CONCORD_DATABASE_DSN"); ok {
		c.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("CONCORD_JWT_SECRET"); ok {
		c.JWTSecret = v
	}
	if v, ok := os.LookupEnv("CONCORD_JWKS_URL"); ok {
		c.JWKSURL = v
	}
}
