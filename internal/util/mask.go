package util

// MaskToken acorta un secret token para logs: primeros 4 caracteres y una
// elipsis, nunca el valor completo.
func MaskToken(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "…"
}
