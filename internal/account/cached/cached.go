// Package cached decora un account.Store con un cache token → cuenta.
//
// La resolución se cachea con TTL corto; la rotación invalida las keys del
// token viejo y del nuevo antes de responder, así ningún lector ve el token
// viejo como válido después de una rotación exitosa.
package cached

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/cache"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

const keyPrefix = "acct:"

// Store envuelve otro account.Store con cacheo de resolución.
type Store struct {
	inner account.Store
	cache cache.Client
	ttl   time.Duration

	// gen se incrementa en cada rotación. Un Resolve que leyó el backend
	// antes de una rotación no puede re-cachear el token muerto después de
	// la invalidación.
	gen atomic.Uint64
}

// New crea el decorator. Si ttl <= 0 usa 30s.
func New(inner account.Store, c cache.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{inner: inner, cache: c, ttl: ttl}
}

// Resolve implementa account.Store con cache-aside.
// Los errores de cache se degradan a cache-miss: el backend sigue mandando.
func (s *Store) Resolve(ctx context.Context, secretToken string) (*account.Account, error) {
	if secretToken == "" {
		return s.inner.Resolve(ctx, secretToken)
	}

	if v, err := s.cache.Get(ctx, keyPrefix+secretToken); err == nil {
		var a account.Account
		if json.Unmarshal([]byte(v), &a) == nil && a.SecretToken == secretToken {
			return &a, nil
		}
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("account cache get failed", logger.Err(err))
	}

	gen := s.gen.Load()
	a, err := s.inner.Resolve(ctx, secretToken)
	if err != nil {
		return nil, err
	}

	// Si hubo una rotación mientras leíamos el backend, lo leído puede ser
	// pre-rotación: se devuelve pero no se cachea. El resto de la ventana
	// (rotación fuera de proceso con cache compartido) queda acotada al TTL.
	if s.gen.Load() == gen {
		if b, err := json.Marshal(a); err == nil {
			if err := s.cache.Set(ctx, keyPrefix+secretToken, string(b), s.ttl); err != nil {
				logger.From(ctx).Warn("account cache set failed", logger.Err(err))
			}
		}
	}
	return a, nil
}

// List delega al store interno sin pasar por el cache.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	l, ok := s.inner.(account.Lister)
	if !ok {
		return nil, account.ErrConfigUnavailable
	}
	return l.List(ctx)
}

// RotateToken delega y luego invalida ambos tokens en el cache.
func (s *Store) RotateToken(ctx context.Context, currentToken, newToken string) (*account.Rotation, error) {
	rot, err := s.inner.RotateToken(ctx, currentToken, newToken)
	if err != nil {
		return nil, err
	}
	// El bump va antes de los deletes: un Resolve en vuelo que ya leyó el
	// backend viejo ve el cambio de generación y no re-cachea.
	s.gen.Add(1)
	// Invalidar ANTES de retornar: el viejo no puede seguir resolviendo.
	if err := s.cache.Delete(ctx, keyPrefix+currentToken); err != nil {
		logger.From(ctx).Warn("cache invalidation failed", logger.Err(err), logger.String("which", "current"))
	}
	if err := s.cache.Delete(ctx, keyPrefix+newToken); err != nil {
		logger.From(ctx).Warn("cache invalidation failed", logger.Err(err), logger.String("which", "new"))
	}
	return rot, nil
}
