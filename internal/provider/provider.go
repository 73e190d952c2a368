// Package provider define el contrato de las plataformas sociales y el flujo
// OAuth común que comparten todas: login → callback → acción autenticada.
//
// Cada plataforma (linkedin, ...) implementa la interfaz Provider con sus
// particularidades (URLs, payloads, estrategia de identidad); el recorrido
// del protocolo y el acceso a los stores viven acá, una sola vez.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/session"
)

// DefaultUpstreamTimeout acota toda llamada remota opaca. Sin reintentos:
// pasado el límite la llamada se considera fallida y el caller reintenta
// el login/post si quiere.
const DefaultUpstreamTimeout = 10 * time.Second

// Deps son los colaboradores compartidos que se inyectan a cada provider.
type Deps struct {
	Accounts account.Store
	Sessions session.Store

	// HTTPClient para las llamadas remotas. Si es nil, los providers crean
	// uno con DefaultUpstreamTimeout.
	HTTPClient *http.Client
}

// Client devuelve el HTTP client inyectado o uno acotado por defecto.
func (d Deps) Client() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: DefaultUpstreamTimeout}
}

// Grant es la respuesta del code-exchange, con los campos que gobiernan el
// resto del flujo más el payload crudo para persistir junto a la sesión.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	// Scope es el string de scopes OTORGADOS por el IDP; decide la
	// estrategia de identidad.
	Scope string
	Raw   map[string]any
}

// Identity es el resultado de la resolución de identidad post-exchange.
type Identity struct {
	UserURN string
	Name    string
}

// PostInput es el cuerpo de una acción de publicación.
type PostInput struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Provider es la capacidad fija que implementa cada plataforma.
type Provider interface {
	// Name es la key de registro; define el namespace HTTP (/<name>/...).
	Name() string

	// DisplayName es el nombre legible usado en mensajes al usuario.
	DisplayName() string

	// AuthorizeURL construye la URL de autorización del IDP para la cuenta,
	// embebiendo state como valor de correlación opaco.
	AuthorizeURL(a *account.Account, state string) (string, error)

	// Exchange canjea el authorization code por un token set.
	Exchange(ctx context.Context, a *account.Account, code string) (*Grant, error)

	// ResolveIdentity decide quién es el usuario autenticado a partir de los
	// scopes otorgados. Exactamente una estrategia gana; si ninguna aplica
	// retorna ErrIdentityUnresolvable y no se persiste nada.
	ResolveIdentity(ctx context.Context, a *account.Account, g *Grant) (*Identity, error)

	// BuildPost arma el payload de publicación de forma determinística a
	// partir de la sesión y el input del caller.
	BuildPost(sess *session.Session, in PostInput) (any, error)

	// Publish ejecuta la llamada remota autenticada y retorna el ID asignado
	// por la plataforma.
	Publish(ctx context.Context, sess *session.Session, payload any) (string, error)
}

// Factory instancia un provider con las dependencias compartidas.
type Factory func(Deps) (Provider, error)
