// Package fs implementa session.Store sobre el directorio de datos:
// un archivo JSON por (cuenta, plataforma) en <root>/<accountID>/<provider>.json.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/dropDatabas3/socialgate/internal/session"
	"github.com/dropDatabas3/socialgate/internal/util/atomicwrite"
)

// safeKey evita que accountID/provider escapen del directorio de datos.
var safeKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store es el session.Store respaldado por archivos.
type Store struct {
	root string

	// Un lock por cuenta: saves concurrentes de logins de una misma cuenta
	// se serializan, cuentas distintas no se bloquean entre sí.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New crea el Store con raíz en dir (se crea si no existe).
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{root: filepath.Clean(dir), locks: map[string]*sync.Mutex{}}, nil
}

func (s *Store) lockFor(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

func (s *Store) path(accountID, provider string) (string, error) {
	if !safeKey.MatchString(accountID) || !safeKey.MatchString(provider) {
		return "", fmt.Errorf("invalid session key %q/%q", accountID, provider)
	}
	return filepath.Join(s.root, accountID, provider+".json"), nil
}

// Save implementa session.Store. Escritura atómica bajo el lock de la cuenta.
func (s *Store) Save(ctx context.Context, accountID, provider string, sess *session.Session) error {
	path, err := s.path(accountID, provider)
	if err != nil {
		return err
	}

	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := atomicwrite.AtomicWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

// Get implementa session.Store.
func (s *Store) Get(ctx context.Context, accountID, provider string) (*session.Session, error) {
	path, err := s.path(accountID, provider)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, session.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	var sess session.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &sess, nil
}
