/*
 * concordd: the unified IRC/WebSocket chat daemon
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
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"git.sr.ht/~runxiyu/concord/internal/config"
	"git.sr.ht/~runxiyu/concord/internal/engine"
	"git.sr.ht/~runxiyu/concord/internal/identity"
	"git.sr.ht/~runxiyu/concord/internal/ircadapter"
	"git.sr.ht/~runxiyu/concord/internal/restapi"
	"git.sr.ht/~runxiyu/concord/internal/store"
	"git.sr.ht/~runxiyu/concord/internal/wsadapter"
)

func main() {
	configPath := flag.String("config", "concord.scfg", "path to the scfg configuration file")
	flag.Parse()

	logger := log.New(os.Stderr, "concordd: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st engine.Store
	if cfg.DatabaseDSN != "" {
		logger.Println("running database migrations")
		if err := store.Migrate(ctx, cfg.DatabaseDSN); err != nil {
			logger.Fatalf("migrating database: %v", err)
		}

		logger.Println("connecting to database")
		pg, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatalf("opening database: %v", err)
		}
		defer pg.Close()
		st = pg
	} else {
		logger.Println("no database configured; persistence disabled")
	}

	eng := engine.NewWithRateLimit(st, logger, cfg.RatelimitCapacity, cfg.RatelimitRefillPerSec)
	if cfg.DatabaseDSN != "" {
		if err := eng.LoadChannelsFromStore(ctx); err != nil {
			logger.Fatalf("loading channels from store: %v", err)
		}
	}

	resolver, err := buildResolver(ctx, cfg)
	if err != nil {
		logger.Fatalf("setting up identity resolver: %v", err)
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Printf("listening for IRC on %s", cfg.IRCListen)
		return ircadapter.ListenAndServe(gctx, cfg.IRCListen, eng, logger)
	})

	group.Go(func() error {
		router := gin.New()
		router.Use(gin.Recovery())

		restapi.NewServer(eng, resolver).Register(router)
		router.Any("/ws", gin.WrapH(wsadapter.NewHandler(eng, resolver, logger)))

		srv := &http.Server{
			Addr:              cfg.WebListen,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.ListenAndServe() }()

		logger.Printf("listening for HTTP/WebSocket on %s", cfg.WebListen)
		select {
		case <-gctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-serveErr:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Println("shutdown complete")
}

func buildResolver(ctx context.Context, cfg config.Config) (*identity.Resolver, error) {
	jwks, err := identity.NewJWKS(ctx, cfg.JWKSURL)
	if err != nil {
		return nil, err
	}
	return identity.NewResolver(jwks), nil
}
