package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/provider"
	"github.com/dropDatabas3/socialgate/internal/session"
)

func testAccount() *account.Account {
	return &account.Account{
		ID:           "a1",
		Name:         "mi-empresa",
		SecretToken:  "sk_1",
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURI:  "https://gw.example/linkedin/callback",
		Scopes:       []string{"openid", "profile", "w_member_social"},
	}
}

func newProvider() *LinkedIn {
	return &LinkedIn{
		AuthURL:     defaultAuthURL,
		TokenURL:    defaultTokenURL,
		UserInfoURL: defaultUserInfoURL,
		PostURL:     defaultPostURL,
		http:        &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAuthorizeURL(t *testing.T) {
	l := newProvider()

	raw, err := l.AuthorizeURL(testAccount(), "sk_1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, defaultAuthURL+"?"))

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "https://gw.example/linkedin/callback", q.Get("redirect_uri"))
	assert.Equal(t, "sk_1", q.Get("state"))
	assert.Equal(t, "openid profile w_member_social", q.Get("scope"))
	assert.Equal(t, "consent", q.Get("prompt"))
}

func TestExchange(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at_123",
			"expires_in":   float64(5184000),
			"scope":        "openid,profile,w_member_social",
		})
	}))
	defer srv.Close()

	l := newProvider()
	l.TokenURL = srv.URL

	g, err := l.Exchange(context.Background(), testAccount(), "c0d3")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "c0d3", gotForm.Get("code"))
	assert.Equal(t, "cid", gotForm.Get("client_id"))
	assert.Equal(t, "csecret", gotForm.Get("client_secret"))
	assert.Equal(t, "https://gw.example/linkedin/callback", gotForm.Get("redirect_uri"))

	assert.Equal(t, "at_123", g.AccessToken)
	assert.EqualValues(t, 5184000, g.ExpiresIn)
	assert.Equal(t, "openid,profile,w_member_social", g.Scope)
	assert.Equal(t, "at_123", g.Raw["access_token"])
}

func TestExchange_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	l := newProvider()
	l.TokenURL = srv.URL

	_, err := l.Exchange(context.Background(), testAccount(), "expired")
	require.Error(t, err)

	var ue *provider.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.JSONEq(t, `{"error":"invalid_grant"}`, string(ue.Body))
}

func TestResolveIdentity_OpenID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at_123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"sub": "999", "name": "Juan Pérez"})
	}))
	defer srv.Close()

	l := newProvider()
	l.UserInfoURL = srv.URL

	ident, err := l.ResolveIdentity(context.Background(), testAccount(),
		&provider.Grant{AccessToken: "at_123", Scope: "openid,profile,w_member_social"})
	require.NoError(t, err)

	assert.Equal(t, "urn:li:person:999", ident.UserURN)
	assert.Equal(t, "Juan Pérez", ident.Name)
}

func TestResolveIdentity_OpenIDWinsOverBypass(t *testing.T) {
	// Con openid otorgado Y manualUrn configurado, gana openid.
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(map[string]string{"sub": "999", "name": "Juan Pérez"})
	}))
	defer srv.Close()

	l := newProvider()
	l.UserInfoURL = srv.URL

	a := testAccount()
	a.ManualURN = "urn:li:person:manual"

	ident, err := l.ResolveIdentity(context.Background(), a,
		&provider.Grant{AccessToken: "at_123", Scope: "openid w_member_social"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "urn:li:person:999", ident.UserURN)
}

func TestResolveIdentity_ManualBypass(t *testing.T) {
	l := newProvider()
	l.UserInfoURL = "http://127.0.0.1:0" // nunca se toca

	a := testAccount()
	a.ManualURN = "urn:li:person:manual"

	ident, err := l.ResolveIdentity(context.Background(), a,
		&provider.Grant{AccessToken: "at_123", Scope: "w_member_social"})
	require.NoError(t, err)

	assert.Equal(t, "urn:li:person:manual", ident.UserURN)
	assert.Equal(t, "Manual Bypass User", ident.Name)
}

func TestResolveIdentity_Unresolvable(t *testing.T) {
	l := newProvider()

	cases := []struct {
		scope     string
		manualURN string
	}{
		{"w_member_social", ""}, // sin manualUrn no hay bypass
		{"profile email", "urn:li:person:manual"},
		{"", ""},
	}
	for _, tc := range cases {
		a := testAccount()
		a.ManualURN = tc.manualURN
		_, err := l.ResolveIdentity(context.Background(), a,
			&provider.Grant{AccessToken: "at_123", Scope: tc.scope})
		assert.ErrorIs(t, err, provider.ErrIdentityUnresolvable, "scope=%q", tc.scope)
	}
}

func TestBuildPost_TextOnly(t *testing.T) {
	l := newProvider()
	sess := &session.Session{UserURN: "urn:li:person:999"}

	payload, err := l.BuildPost(sess, provider.PostInput{Text: "hola mundo"})
	require.NoError(t, err)

	post, ok := payload.(*ugcPost)
	require.True(t, ok)
	assert.Equal(t, "urn:li:person:999", post.Author)
	assert.Equal(t, "PUBLISHED", post.LifecycleState)

	content := post.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "hola mundo", content.ShareCommentary.Text)
	assert.Equal(t, "NONE", content.ShareMediaCategory)
	assert.Empty(t, content.Media)
	assert.Equal(t, "PUBLIC", post.Visibility["com.linkedin.ugc.MemberNetworkVisibility"])
}

func TestBuildPost_WithArticle(t *testing.T) {
	l := newProvider()
	sess := &session.Session{UserURN: "urn:li:person:999"}

	payload, err := l.BuildPost(sess, provider.PostInput{Text: "lean esto", URL: "https://blog.example/post"})
	require.NoError(t, err)

	post := payload.(*ugcPost)
	content := post.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "ARTICLE", content.ShareMediaCategory)
	require.Len(t, content.Media, 1)
	assert.Equal(t, "READY", content.Media[0].Status)
	assert.Equal(t, "https://blog.example/post", content.Media[0].OriginalURL)
}

func TestBuildPost_EmptyText(t *testing.T) {
	l := newProvider()
	_, err := l.BuildPost(&session.Session{}, provider.PostInput{Text: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text")
}

func TestPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at_123", r.Header.Get("Authorization"))
		require.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var post ugcPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&post))
		assert.Equal(t, "urn:li:person:999", post.Author)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:42"})
	}))
	defer srv.Close()

	l := newProvider()
	l.PostURL = srv.URL

	sess := &session.Session{UserURN: "urn:li:person:999", AccessToken: "at_123"}
	payload, err := l.BuildPost(sess, provider.PostInput{Text: "hola"})
	require.NoError(t, err)

	id, err := l.Publish(context.Background(), sess, payload)
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:42", id)
}

func TestPublish_RemoteErrorBodyPreserved(t *testing.T) {
	remote := `{"serviceErrorCode":65600,"message":"Invalid access token","status":401}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(remote))
	}))
	defer srv.Close()

	l := newProvider()
	l.PostURL = srv.URL

	sess := &session.Session{UserURN: "urn:li:person:999", AccessToken: "stale"}
	_, err := l.Publish(context.Background(), sess, map[string]string{"author": sess.UserURN})
	require.Error(t, err)

	var ue *provider.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.JSONEq(t, remote, string(ue.Body))
}

func TestSplitScopes(t *testing.T) {
	assert.Equal(t, map[string]bool{"openid": true, "profile": true}, splitScopes("openid profile"))
	assert.Equal(t, map[string]bool{"openid": true, "profile": true}, splitScopes("openid,profile"))
	assert.Equal(t, map[string]bool{"openid": true}, splitScopes(" openid , "))
	assert.Empty(t, splitScopes(""))
}
