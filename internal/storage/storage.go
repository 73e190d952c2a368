// Package storage arma los stores concretos (cuentas y sesiones) a partir de
// la configuración: backend fs o postgres, con cache opcional por delante de
// la resolución de cuentas.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/account"
	accountcached "github.com/dropDatabas3/socialgate/internal/account/cached"
	accountfs "github.com/dropDatabas3/socialgate/internal/account/fs"
	accountpg "github.com/dropDatabas3/socialgate/internal/account/pg"
	"github.com/dropDatabas3/socialgate/internal/cache"
	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/http/handlers"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/session"
	sessionfs "github.com/dropDatabas3/socialgate/internal/session/fs"
	sessionpg "github.com/dropDatabas3/socialgate/internal/session/pg"
)

// Stores agrupa todo lo que el resto del servicio necesita del storage.
type Stores struct {
	Accounts account.Store
	Sessions session.Store

	// Pings para readyz, por nombre de dependencia.
	Pings map[string]handlers.PingFunc

	pool  *pgxpool.Pool
	cache cache.Client
}

// Close libera pool y cache. Seguro de llamar siempre.
func (s *Stores) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Open construye los stores según cfg. En postgres aplica el DDL al arrancar.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{Pings: map[string]handlers.PingFunc{}}

	switch cfg.Storage.Driver {
	case "fs":
		s.Accounts = accountfs.New(cfg.Storage.FS.AccountsFile)
		sess, err := sessionfs.New(cfg.Storage.FS.DataDir)
		if err != nil {
			return nil, fmt.Errorf("storage: session dir: %w", err)
		}
		s.Sessions = sess

	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("storage: parse dsn: %w", err)
		}
		if cfg.Storage.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.Storage.Postgres.MaxConns)
		}
		if cfg.Storage.Postgres.ConnMaxLifetime != "" {
			d, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
			poolCfg.MaxConnLifetime = d
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("storage: connect postgres: %w", err)
		}
		s.pool = pool
		s.Pings["postgres"] = pool.Ping

		accounts := accountpg.New(pool)
		sessions := sessionpg.New(pool)
		if err := accounts.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("storage: accounts schema: %w", err)
		}
		if err := sessions.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("storage: sessions schema: %w", err)
		}
		s.Accounts = accounts
		s.Sessions = sessions

	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}

	if cfg.Cache.Kind != "off" {
		c, err := cache.New(cache.Config{
			Kind:   cfg.Cache.Kind,
			Addr:   cfg.Cache.Redis.Addr,
			DB:     cfg.Cache.Redis.DB,
			Prefix: cfg.Cache.Redis.Prefix,
			MemTTL: cfg.MemoryTTL(),
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("storage: cache: %w", err)
		}
		s.cache = c
		if cfg.Cache.Kind == "redis" {
			s.Pings["redis"] = c.Ping
		}
		s.Accounts = accountcached.New(s.Accounts, c, cfg.MemoryTTL())
		logger.L().Info("account cache enabled", logger.String("kind", cfg.Cache.Kind))
	}

	return s, nil
}
