package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/session"
)

// ---- fakes ----

type fakeAccounts struct {
	byToken map[string]*account.Account
}

func (f *fakeAccounts) Resolve(ctx context.Context, token string) (*account.Account, error) {
	if token == "" {
		return nil, account.ErrMissingToken
	}
	if a, ok := f.byToken[token]; ok {
		return a, nil
	}
	return nil, account.ErrInvalidToken
}

func (f *fakeAccounts) RotateToken(ctx context.Context, current, next string) (*account.Rotation, error) {
	return nil, account.ErrInvalidToken
}

type fakeSessions struct {
	saved map[string]*session.Session // key: accountID|provider
	fail  bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: map[string]*session.Session{}}
}

func (f *fakeSessions) Save(ctx context.Context, accountID, provider string, s *session.Session) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.saved[accountID+"|"+provider] = s
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, accountID, provider string) (*session.Session, error) {
	if s, ok := f.saved[accountID+"|"+provider]; ok {
		return s, nil
	}
	return nil, session.ErrNotAuthenticated
}

// fakeProvider implementa Provider con comportamiento inyectable.
type fakeProvider struct {
	name        string
	exchangeErr error
	identityErr error
	publishErr  error
	published   int
}

func (p *fakeProvider) Name() string        { return p.name }
func (p *fakeProvider) DisplayName() string { return "Fakebook" }

func (p *fakeProvider) AuthorizeURL(a *account.Account, state string) (string, error) {
	return "https://idp.example/authorize?client_id=" + a.ClientID + "&state=" + state, nil
}

func (p *fakeProvider) Exchange(ctx context.Context, a *account.Account, code string) (*Grant, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &Grant{
		AccessToken: "at-" + code,
		Scope:       "openid",
		Raw:         map[string]any{"access_token": "at-" + code},
	}, nil
}

func (p *fakeProvider) ResolveIdentity(ctx context.Context, a *account.Account, g *Grant) (*Identity, error) {
	if p.identityErr != nil {
		return nil, p.identityErr
	}
	return &Identity{UserURN: "urn:fake:1", Name: "OpenID Connect"}, nil
}

func (p *fakeProvider) BuildPost(sess *session.Session, in PostInput) (any, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, errors.New("text is required")
	}
	return map[string]any{"author": sess.UserURN, "text": in.Text}, nil
}

func (p *fakeProvider) Publish(ctx context.Context, sess *session.Session, payload any) (string, error) {
	if p.publishErr != nil {
		return "", p.publishErr
	}
	p.published++
	return "post-123", nil
}

func testAccount() *account.Account {
	return &account.Account{
		ID:          "a1",
		Name:        "mi-empresa",
		SecretToken: "sk_1",
		ClientID:    "cid",
		RedirectURI: "https://gw.example/fake/callback",
		Scopes:      []string{"openid"},
	}
}

func newTestHandler(p *fakeProvider, sessions *fakeSessions) *Handler {
	deps := Deps{
		Accounts: &fakeAccounts{byToken: map[string]*account.Account{"sk_1": testAccount()}},
		Sessions: sessions,
	}
	return NewHandler(p, deps)
}

// ---- login ----

func TestLogin_RedirectsWithState(t *testing.T) {
	h := newTestHandler(&fakeProvider{name: "fake"}, newFakeSessions())

	req := httptest.NewRequest(http.MethodGet, "/fake/login?authtoken=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "state=sk_1")
	assert.Contains(t, loc, "client_id=cid")
}

func TestLogin_InvalidToken(t *testing.T) {
	h := newTestHandler(&fakeProvider{name: "fake"}, newFakeSessions())

	for _, target := range []string{"/fake/login", "/fake/login?authtoken=sk_nope"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

// ---- callback ----

func TestCallback_SavesSessionAndRendersHTML(t *testing.T) {
	sessions := newFakeSessions()
	h := newTestHandler(&fakeProvider{name: "fake"}, sessions)

	req := httptest.NewRequest(http.MethodGet, "/fake/callback?code=c0d3&state=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>✅ Connected!</h1>")
	assert.Contains(t, rec.Body.String(), "Mode: OpenID Connect")

	saved := sessions.saved["a1|fake"]
	require.NotNil(t, saved)
	assert.Equal(t, "urn:fake:1", saved.UserURN)
	assert.Equal(t, "at-c0d3", saved.AccessToken)
	assert.False(t, saved.LastUpdated.IsZero())
	assert.Equal(t, "at-c0d3", saved.Raw["access_token"])
}

func TestCallback_IDPErrorShortCircuits(t *testing.T) {
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake", exchangeErr: errors.New("exchange must not run")}
	h := newTestHandler(p, sessions)

	req := httptest.NewRequest(http.MethodGet, "/fake/callback?error=user_cancelled_login", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	// El error del IDP se reporta al caller con 200, sin tocar nada.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fakebook Error: user_cancelled_login", rec.Body.String())
	assert.Empty(t, sessions.saved)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake", exchangeErr: errors.New("token endpoint: status 400")}
	h := newTestHandler(p, sessions)

	req := httptest.NewRequest(http.MethodGet, "/fake/callback?code=bad&state=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error: ")
	assert.Empty(t, sessions.saved)
}

func TestCallback_IdentityUnresolvable_NothingPersisted(t *testing.T) {
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake", identityErr: ErrIdentityUnresolvable}
	h := newTestHandler(p, sessions)

	req := httptest.NewRequest(http.MethodGet, "/fake/callback?code=c0d3&state=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, sessions.saved)

	// Y un post posterior sigue siendo "not authenticated".
	post := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1", strings.NewReader(`{"text":"hola"}`))
	rec2 := httptest.NewRecorder()
	h.Post(rec2, post)
	require.Equal(t, http.StatusInternalServerError, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "not authenticated")
}

func TestCallback_SaveFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.fail = true
	h := newTestHandler(&fakeProvider{name: "fake"}, sessions)

	req := httptest.NewRequest(http.MethodGet, "/fake/callback?code=c0d3&state=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- post ----

func authenticate(t *testing.T, h *Handler) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/fake/callback?code=c0d3&state=sk_1", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPost_DryRunDoesNotPublish(t *testing.T) {
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake", publishErr: errors.New("publish must not run")}
	h := newTestHandler(p, sessions)
	authenticate(t, h)

	before := len(sessions.saved)

	req := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1&dryrun=true", strings.NewReader(`{"text":"hola"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp postResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "dry-run", resp.Mode)
	assert.Equal(t, "Token is valid and payload is ready. No post was sent to Fakebook.", resp.Message)
	assert.Empty(t, resp.ID)

	// Sin llamadas remotas ni mutación de sesión.
	assert.Equal(t, 0, p.published)
	assert.Equal(t, before, len(sessions.saved))
}

func TestPost_Live(t *testing.T) {
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake"}
	h := newTestHandler(p, sessions)
	authenticate(t, h)

	req := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1", strings.NewReader(`{"text":"hola"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp postResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "post-123", resp.ID)
	assert.Equal(t, 1, p.published)
}

func TestPost_WithoutSession(t *testing.T) {
	h := newTestHandler(&fakeProvider{name: "fake"}, newFakeSessions())

	req := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1", strings.NewReader(`{"text":"hola"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "not authenticated")
}

func TestPost_UpstreamErrorBodyVerbatim(t *testing.T) {
	remote := `{"serviceErrorCode":65600,"message":"Invalid access token","status":401}`
	sessions := newFakeSessions()
	p := &fakeProvider{name: "fake", publishErr: &UpstreamError{
		Call:   "ugcPosts",
		Status: 401,
		Body:   []byte(remote),
	}}
	h := newTestHandler(p, sessions)
	authenticate(t, h)

	req := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1", strings.NewReader(`{"text":"hola"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, remote, string(body.Error))
}

func TestPost_EmptyText(t *testing.T) {
	sessions := newFakeSessions()
	h := newTestHandler(&fakeProvider{name: "fake"}, sessions)
	authenticate(t, h)

	req := httptest.NewRequest(http.MethodPost, "/fake/post?authtoken=sk_1", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "text is required")
}
