// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/deliberating-room/cliparse"
	"github.com/danielhkuo/deliberating-room/db"
	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/localcache"
	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/namegen"
	"github.com/danielhkuo/deliberating-room/notify"
	"github.com/danielhkuo/deliberating-room/remote"
	"github.com/danielhkuo/deliberating-room/router"
	"github.com/danielhkuo/deliberating-room/sessions"
	"github.com/danielhkuo/deliberating-room/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	// Local cache and session records
	localConn, err := sql.Open(db.LocalDriver, cfg.CachePath)
	if err != nil {
		return err
	}
	defer localConn.Close()
	localConn.SetMaxOpenConns(1)

	if err := db.CreateLocalSchema(localConn); err != nil {
		return err
	}
	slog.Info("Local cache ready", "path", cfg.CachePath)

	// Remote store is optional
	var (
		remoteStore store.Remote
		listener    notify.Listener
		events      atomic.Pointer[notify.Notifier]
	)
	if cfg.LocalOnly() {
		slog.Warn("No DATABASE_URL set, running local-only")
	} else {
		remoteConn, err := sql.Open(db.RemoteDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer remoteConn.Close()

		if err := remoteConn.Ping(); err != nil {
			// Startup continues; the store falls back until the remote recovers
			slog.Warn("Remote ping failed", "error", err)
		} else if err := db.CreateRemoteSchema(remoteConn); err != nil {
			return err
		} else {
			slog.Info("Remote schema ready")
		}
		remoteStore = remote.New(remoteConn)
		// the listener starts dialing right away, before the notifier exists
		listener = pq.NewListener(cfg.DatabaseURL, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if n := events.Load(); n != nil {
				n.ListenerEvent(ev, err)
			} else if err != nil {
				slog.Warn("Listener event", "event", ev, "error", err)
			}
		})
	}

	notifier := notify.New(listener, cfg.PollInterval)
	events.Store(notifier)
	st := store.New(remoteStore, localcache.New(localConn, cfg.SessionTTL), cfg.RemoteTimeout,
		store.WithPublisher(notifier.Publish))
	mgr := lifecycle.New(st, sessions.New(localConn, cfg.SessionTTL), cfg,
		lifecycle.WithNames(namegen.New().Random))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := mgr.Cleanup(ctx); err != nil {
		slog.Warn("Startup cleanup failed", "error", err)
	}

	// Create server
	server := &http.Server{
		Handler: middleware.CORS(router.NewRouter(mgr, notifier)),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return notifier.Run(ctx)
	})

	g.Go(func() error {
		every(ctx, cfg.CleanupInterval, func() {
			if _, err := mgr.Cleanup(ctx); err != nil {
				slog.Warn("Cleanup failed", "error", err)
			}
		})
		return nil
	})

	if !cfg.LocalOnly() {
		g.Go(func() error {
			every(ctx, cfg.PollInterval, func() {
				if n, err := st.Reconcile(ctx); err != nil {
					slog.Debug("Reconcile deferred", "error", err)
				} else if n > 0 {
					slog.Info("Reconciled offline rooms", "count", n)
				}
			})
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}

// every calls fn on each tick until ctx ends
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
