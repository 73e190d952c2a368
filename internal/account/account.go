// Package account define las cuentas (tenants) del gateway y su resolución
// por secret token.
//
// Las cuentas se aprovisionan fuera de banda (accounts.json o tabla accounts);
// la única mutación que hace el gateway es la rotación del secret token.
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/socialgate/internal/security/secretbox"
)

// Account es la configuración OAuth de un tenant, identificada externamente
// por su secretToken (bearer opaco) y de forma estable por ID.
type Account struct {
	// ID es estable e inmutable; es la key bajo la que se guardan sesiones,
	// desacoplada del token rotable.
	ID          string `json:"id"`
	Name        string `json:"name"`
	SecretToken string `json:"secretToken"`
	ClientID    string `json:"clientId"`
	// ClientSecret en claro, o ClientSecretEnc cifrado con secretbox.
	// Si ambos están presentes gana el cifrado.
	ClientSecret    string   `json:"clientSecret,omitempty"`
	ClientSecretEnc string   `json:"clientSecretEnc,omitempty"`
	RedirectURI     string   `json:"redirectUri"`
	Scopes          []string `json:"scopes"`
	// ManualURN permite identificar al usuario cuando el IDP no otorga openid.
	ManualURN string `json:"manualUrn,omitempty"`
}

// ResolvedClientSecret devuelve el client secret utilizable, descifrando
// ClientSecretEnc cuando corresponde.
func (a *Account) ResolvedClientSecret() (string, error) {
	if strings.TrimSpace(a.ClientSecretEnc) != "" {
		return secretbox.Decrypt(a.ClientSecretEnc)
	}
	return a.ClientSecret, nil
}

// Validate chequea los campos mínimos de una cuenta.
// Se valida al cargar la colección, no en cada lectura.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account sin id")
	}
	if strings.TrimSpace(a.SecretToken) == "" {
		return fmt.Errorf("account %s: sin secretToken", a.ID)
	}
	if strings.TrimSpace(a.ClientID) == "" {
		return fmt.Errorf("account %s: sin clientId", a.ID)
	}
	if strings.TrimSpace(a.RedirectURI) == "" {
		return fmt.Errorf("account %s: sin redirectUri", a.ID)
	}
	return nil
}

// ValidateCollection valida cada cuenta y la unicidad de tokens e IDs
// en toda la colección.
func ValidateCollection(accounts []Account) error {
	seenTok := make(map[string]string, len(accounts))
	seenID := make(map[string]bool, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		if err := a.Validate(); err != nil {
			return err
		}
		if other, dup := seenTok[a.SecretToken]; dup {
			return fmt.Errorf("secretToken duplicado entre cuentas %s y %s", other, a.ID)
		}
		seenTok[a.SecretToken] = a.ID
		if seenID[a.ID] {
			return fmt.Errorf("id duplicado: %s", a.ID)
		}
		seenID[a.ID] = true
	}
	return nil
}

// Rotation es el resultado de una rotación exitosa.
type Rotation struct {
	AccountID   string
	AccountName string
}

// Store resuelve cuentas por secret token y rota tokens.
type Store interface {
	// Resolve mapea un secret token a su cuenta.
	// Errores: ErrMissingToken, ErrInvalidToken, ErrConfigUnavailable.
	Resolve(ctx context.Context, secretToken string) (*Account, error)

	// RotateToken reemplaza currentToken por newToken de forma atómica.
	// El token viejo queda inválido inmediatamente para toda resolución futura.
	// Errores: ErrInvalidToken (currentToken no resuelve), ErrTokenTaken
	// (newToken pertenece a otra cuenta), ErrConfigUnavailable.
	RotateToken(ctx context.Context, currentToken, newToken string) (*Rotation, error)
}

// Lister lo implementan los stores que además pueden enumerar cuentas.
// Lo usa el CLI; el servidor nunca lista.
type Lister interface {
	List(ctx context.Context) ([]Account, error)
}
