package provider

import (
	"errors"
	"fmt"
)

// ErrIdentityUnresolvable: el exchange fue exitoso pero ninguna estrategia de
// identidad aplica (ni openid en los scopes otorgados ni manualUrn en la
// cuenta). No se persiste sesión.
var ErrIdentityUnresolvable = errors.New("missing 'openid' scope and no 'manualUrn' found in config; cannot identify user")

// UpstreamError es una llamada remota que falló o devolvió un error.
// El body se conserva verbatim para propagarlo al caller sin reinterpretar.
type UpstreamError struct {
	Call   string // exchange | userinfo | publish
	Status int
	Body   []byte
	Err    error // causa de transporte, si la hubo
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Call, e.Err)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Call, e.Status, string(e.Body))
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RemoteBody devuelve el body estructurado del upstream si existe.
func (e *UpstreamError) RemoteBody() []byte { return e.Body }
