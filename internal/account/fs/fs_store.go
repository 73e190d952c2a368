// Package fs implementa account.Store sobre un archivo JSON (accounts.json).
//
// El archivo es la fuente de verdad y se edita fuera de banda, por eso cada
// resolución relee el disco en vez de cachear (el cacheo va por el decorator
// account/cached). La rotación es read-modify-write serializado con mutex y
// persistido con escritura atómica.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/util/atomicwrite"
)

// Store es el account.Store respaldado por archivo.
type Store struct {
	path string

	// mu serializa rotaciones entre sí y contra lecturas: dos rotaciones
	// concurrentes sobre tokens distintos no pueden pisarse la escritura.
	mu sync.RWMutex
}

// New crea un Store sobre el archivo de cuentas dado.
func New(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Path devuelve la ruta del archivo de cuentas.
func (s *Store) Path() string { return s.path }

func (s *Store) load() ([]account.Account, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
	}
	var accounts []account.Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", account.ErrConfigUnavailable, s.path, err)
	}
	return accounts, nil
}

func (s *Store) persist(accounts []account.Account) error {
	b, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", account.ErrConfigUnavailable, err)
	}
	if err := atomicwrite.AtomicWriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", account.ErrConfigUnavailable, s.path, err)
	}
	return nil
}

// Resolve implementa account.Store.
func (s *Store) Resolve(ctx context.Context, secretToken string) (*account.Account, error) {
	if strings.TrimSpace(secretToken) == "" {
		return nil, account.ErrMissingToken
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].SecretToken == secretToken {
			a := accounts[i]
			return &a, nil
		}
	}
	return nil, account.ErrInvalidToken
}

// List implementa account.Lister.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// RotateToken implementa account.Store.
// Invariante: ninguna escritura deja dos cuentas compartiendo token, ni expone
// un duplicado transitorio a un lector concurrente (el lock cubre load+persist).
func (s *Store) RotateToken(ctx context.Context, currentToken, newToken string) (*account.Rotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range accounts {
		if accounts[i].SecretToken == currentToken {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, account.ErrInvalidToken
	}

	// El token nuevo no puede estar en uso por OTRA cuenta.
	for i := range accounts {
		if i != idx && accounts[i].SecretToken == newToken {
			return nil, account.ErrTokenTaken
		}
	}

	accounts[idx].SecretToken = newToken
	if err := s.persist(accounts); err != nil {
		return nil, err
	}

	logger.From(ctx).Info("token rotated",
		logger.AccountID(accounts[idx].ID),
		logger.AccountName(accounts[idx].Name),
	)

	return &account.Rotation{
		AccountID:   accounts[idx].ID,
		AccountName: accounts[idx].Name,
	}, nil
}
