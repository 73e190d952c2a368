// Package linkedin implementa el provider de LinkedIn: authorization-code
// grant contra /oauth/v2, identidad vía /v2/userinfo (OpenID) o manualUrn
// de la cuenta, y publicación vía /v2/ugcPosts.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/metrics"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/provider"
	"github.com/dropDatabas3/socialgate/internal/session"
)

const (
	defaultAuthURL     = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultUserInfoURL = "https://api.linkedin.com/v2/userinfo"
	defaultPostURL     = "https://api.linkedin.com/v2/ugcPosts"

	// bypassName es el display name centinela cuando la identidad viene del
	// manualUrn configurado y no del claim OpenID.
	bypassName = "Manual Bypass User"

	restliVersion = "2.0.0"
)

func init() {
	provider.Register("linkedin", New)
}

// LinkedIn implementa provider.Provider. Stateless: toda la configuración
// por tenant viene en la cuenta resuelta.
type LinkedIn struct {
	// Endpoints sobreescribibles (tests apuntan a un httptest.Server).
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	PostURL     string

	http *http.Client
}

// New es la factory registrada.
func New(deps provider.Deps) (provider.Provider, error) {
	return &LinkedIn{
		AuthURL:     defaultAuthURL,
		TokenURL:    defaultTokenURL,
		UserInfoURL: defaultUserInfoURL,
		PostURL:     defaultPostURL,
		http:        deps.Client(),
	}, nil
}

func (l *LinkedIn) Name() string        { return "linkedin" }
func (l *LinkedIn) DisplayName() string { return "LinkedIn" }

// AuthorizeURL arma la URL de autorización con el secret token como state y
// prompt=consent para forzar la pantalla de consentimiento.
func (l *LinkedIn) AuthorizeURL(a *account.Account, state string) (string, error) {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {a.ClientID},
		"redirect_uri":  {a.RedirectURI},
		"state":         {state},
		"scope":         {strings.Join(a.Scopes, " ")},
		"prompt":        {"consent"},
	}
	return l.AuthURL + "?" + params.Encode(), nil
}

// Exchange canjea el code por un token set (POST form, confidential client).
func (l *LinkedIn) Exchange(ctx context.Context, a *account.Account, code string) (*provider.Grant, error) {
	secret, err := a.ResolvedClientSecret()
	if err != nil {
		return nil, fmt.Errorf("client secret: %w", err)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {a.RedirectURI},
		"client_id":     {a.ClientID},
		"client_secret": {secret},
	}

	body, err := l.roundTrip(ctx, "exchange", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &provider.UpstreamError{Call: "exchange", Err: fmt.Errorf("invalid token response: %w", err)}
	}

	g := &provider.Grant{Raw: raw}
	g.AccessToken, _ = raw["access_token"].(string)
	g.RefreshToken, _ = raw["refresh_token"].(string)
	g.Scope, _ = raw["scope"].(string)
	if v, ok := raw["expires_in"].(float64); ok {
		g.ExpiresIn = int64(v)
	}
	if g.AccessToken == "" {
		return nil, &provider.UpstreamError{Call: "exchange", Status: http.StatusOK, Body: body}
	}
	return g, nil
}

// userInfo es el claim mínimo que usamos de /v2/userinfo.
type userInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

// ResolveIdentity selecciona la estrategia de identidad en orden fijo:
//
//  1. OpenID: scopes otorgados incluyen "openid" → fetch de userinfo.
//  2. Manual bypass: "w_member_social" otorgado Y la cuenta trae manualUrn.
//  3. Ninguna → ErrIdentityUnresolvable.
func (l *LinkedIn) ResolveIdentity(ctx context.Context, a *account.Account, g *provider.Grant) (*provider.Identity, error) {
	granted := splitScopes(g.Scope)

	switch {
	case granted["openid"]:
		ui, err := l.fetchUserInfo(ctx, g.AccessToken)
		if err != nil {
			return nil, err
		}
		return &provider.Identity{
			UserURN: "urn:li:person:" + ui.Sub,
			Name:    ui.Name,
		}, nil

	case granted["w_member_social"] && a.ManualURN != "":
		logger.From(ctx).Warn("openid missing, using manual bypass",
			logger.Provider(l.Name()),
			logger.AccountID(a.ID),
		)
		return &provider.Identity{UserURN: a.ManualURN, Name: bypassName}, nil

	default:
		return nil, provider.ErrIdentityUnresolvable
	}
}

func (l *LinkedIn) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	body, err := l.roundTrip(ctx, "userinfo", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.UserInfoURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	var ui userInfo
	if err := json.Unmarshal(body, &ui); err != nil {
		return nil, &provider.UpstreamError{Call: "userinfo", Err: fmt.Errorf("invalid userinfo response: %w", err)}
	}
	return &ui, nil
}

// Publish manda el UGC post. El body de error del remoto se propaga verbatim.
func (l *LinkedIn) Publish(ctx context.Context, sess *session.Session, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal post payload: %w", err)
	}

	body, err := l.roundTrip(ctx, "publish", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.PostURL, strings.NewReader(string(b)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Restli-Protocol-Version", restliVersion)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &provider.UpstreamError{Call: "publish", Err: fmt.Errorf("invalid publish response: %w", err)}
	}
	return resp.ID, nil
}

// roundTrip ejecuta una llamada remota opaca: sin reintentos, acotada por el
// timeout del client, midiendo latencia y convirtiendo todo no-2xx en
// UpstreamError con el body intacto.
func (l *LinkedIn) roundTrip(ctx context.Context, call string, build func() (*http.Request, error)) ([]byte, error) {
	req, err := build()
	if err != nil {
		return nil, &provider.UpstreamError{Call: call, Err: err}
	}

	start := time.Now()
	resp, err := l.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(l.Name(), call).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &provider.UpstreamError{Call: call, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.UpstreamError{Call: call, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.UpstreamError{Call: call, Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

// splitScopes tolera scopes separados por espacio o coma (LinkedIn usa ambos
// según el endpoint).
func splitScopes(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' }) {
		if f = strings.TrimSpace(f); f != "" {
			out[f] = true
		}
	}
	return out
}
