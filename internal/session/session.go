// Package session define el registro durable de una autorización exitosa:
// credencial de acceso + identidad resuelta en la plataforma.
//
// Una Session se escribe completa después de un code-exchange exitoso y se
// reemplaza entera en cada login; nunca hay estado "parcial" persistido.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotAuthenticated: nunca se guardó sesión para esa (cuenta, plataforma).
var ErrNotAuthenticated = errors.New("not authenticated, please login first")

// Session es el payload autenticado de una cuenta en una plataforma.
type Session struct {
	// UserURN es el identificador nativo del usuario en la plataforma
	// (ej: urn:li:person:xxxx).
	UserURN string `json:"userUrn"`
	Name    string `json:"name"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`

	LastUpdated time.Time `json:"lastUpdated"`

	// Raw conserva el payload crudo del grant tal como lo devolvió el IDP.
	Raw map[string]any `json:"raw,omitempty"`
}

// Store persiste sesiones keyed por (accountID, provider).
//
// Guardar bajo el ID estable de la cuenta (y no el token rotable) permite
// rotar el secret token sin invalidar la sesión. El provider en la key evita
// que autorizar una segunda plataforma pise la sesión de la primera.
type Store interface {
	// Save sobreescribe incondicionalmente la sesión previa de esa key.
	Save(ctx context.Context, accountID, provider string, s *Session) error

	// Get retorna la sesión o ErrNotAuthenticated si nunca se guardó una.
	Get(ctx context.Context, accountID, provider string) (*Session, error)
}
