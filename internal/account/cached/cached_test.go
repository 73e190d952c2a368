package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/cache"
)

// fakeStore cuenta las resoluciones que llegan al backend.
type fakeStore struct {
	accounts map[string]account.Account
	resolves int
}

func (f *fakeStore) Resolve(_ context.Context, tok string) (*account.Account, error) {
	f.resolves++
	if tok == "" {
		return nil, account.ErrMissingToken
	}
	if a, ok := f.accounts[tok]; ok {
		return &a, nil
	}
	return nil, account.ErrInvalidToken
}

func (f *fakeStore) RotateToken(_ context.Context, cur, next string) (*account.Rotation, error) {
	a, ok := f.accounts[cur]
	if !ok {
		return nil, account.ErrInvalidToken
	}
	if other, taken := f.accounts[next]; taken && other.ID != a.ID {
		return nil, account.ErrTokenTaken
	}
	delete(f.accounts, cur)
	a.SecretToken = next
	f.accounts[next] = a
	return &account.Rotation{AccountID: a.ID, AccountName: a.Name}, nil
}

func newFake() *fakeStore {
	return &fakeStore{accounts: map[string]account.Account{
		"sk_1": {ID: "a1", Name: "Acme", SecretToken: "sk_1"},
	}}
}

func TestResolve_CachesSecondHit(t *testing.T) {
	ctx := context.Background()
	inner := newFake()
	s := New(inner, cache.NewMemory(cache.Config{}), time.Minute)

	a, err := s.Resolve(ctx, "sk_1")
	require.NoError(t, err)
	require.Equal(t, "a1", a.ID)

	_, err = s.Resolve(ctx, "sk_1")
	require.NoError(t, err)
	require.Equal(t, 1, inner.resolves, "second resolve should come from cache")
}

func TestRotate_InvalidatesOldToken(t *testing.T) {
	ctx := context.Background()
	inner := newFake()
	s := New(inner, cache.NewMemory(cache.Config{}), time.Minute)

	_, err := s.Resolve(ctx, "sk_1") // poblar cache
	require.NoError(t, err)

	_, err = s.RotateToken(ctx, "sk_1", "sk_2")
	require.NoError(t, err)

	// El token viejo no puede resolver ni desde el cache.
	_, err = s.Resolve(ctx, "sk_1")
	require.True(t, errors.Is(err, account.ErrInvalidToken))

	a, err := s.Resolve(ctx, "sk_2")
	require.NoError(t, err)
	require.Equal(t, "a1", a.ID)
}

// blockingStore deja un Resolve esperando para interlear una rotación.
type blockingStore struct {
	*fakeStore
	entered chan struct{}
	proceed chan struct{}
}

func (b *blockingStore) Resolve(ctx context.Context, tok string) (*account.Account, error) {
	// Snapshot pre-rotación: se lee ANTES de bloquear, como un lector que ya
	// pasó por el backend cuando la rotación lo alcanza.
	a, err := b.fakeStore.Resolve(ctx, tok)
	b.entered <- struct{}{}
	<-b.proceed
	return a, err
}

func TestRotate_InFlightResolveDoesNotRecacheOldToken(t *testing.T) {
	ctx := context.Background()
	inner := &blockingStore{
		fakeStore: newFake(),
		entered:   make(chan struct{}),
		proceed:   make(chan struct{}),
	}
	c := cache.NewMemory(cache.Config{})
	s := New(inner, c, time.Minute)

	// Resolve en vuelo que ya leyó el backend pre-rotación.
	done := make(chan struct{})
	var gotAcct *account.Account
	var gotErr error
	go func() {
		defer close(done)
		gotAcct, gotErr = s.Resolve(ctx, "sk_1")
	}()
	<-inner.entered

	// La rotación completa e invalida mientras el lector está detenido.
	_, err := s.RotateToken(ctx, "sk_1", "sk_2")
	require.NoError(t, err)

	close(inner.proceed)
	<-done

	// El lector retornó la cuenta vieja pero NO la dejó en el cache.
	require.NoError(t, gotErr)
	require.Equal(t, "a1", gotAcct.ID)
	_, err = c.Get(ctx, keyPrefix+"sk_1")
	require.True(t, cache.IsNotFound(err), "stale token must not be re-cached")
}

func TestResolve_MissingTokenBypassesCache(t *testing.T) {
	s := New(newFake(), cache.NewMemory(cache.Config{}), time.Minute)
	_, err := s.Resolve(context.Background(), "")
	require.True(t, errors.Is(err, account.ErrMissingToken))
}
