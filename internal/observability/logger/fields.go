package logger

import (
	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Provider crea un campo para la plataforma social (linkedin, ...).
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// AccountID crea un campo para el ID estable de la cuenta.
func AccountID(v string) zap.Field {
	return zap.String("account_id", v)
}

// AccountName crea un campo para el nombre de la cuenta.
func AccountName(v string) zap.Field {
	return zap.String("account_name", v)
}

// Mode crea un campo para el modo de una acción (dry-run / live).
func Mode(v string) zap.Field {
	return zap.String("mode", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - GENERAL
// =================================================================================

// Err crea un campo para un error. Alias corto de zap.Error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Component crea un campo identificando el componente emisor.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación en curso.
func Op(v string) zap.Field {
	return zap.String("op", v)
}
