package account

import "errors"

var (
	// ErrMissingToken: el caller no mandó token.
	ErrMissingToken = errors.New("missing 'authtoken' parameter")

	// ErrInvalidToken: token presente pero ninguna cuenta lo posee.
	ErrInvalidToken = errors.New("invalid auth token: no matching account found")

	// ErrConfigUnavailable: la colección de cuentas no se pudo leer.
	// Fatal para el request, no para el proceso.
	ErrConfigUnavailable = errors.New("accounts configuration unavailable")

	// ErrTokenTaken: el token nuevo ya pertenece a otra cuenta.
	ErrTokenTaken = errors.New("token already in use by another account")
)
