// Package handlers contiene los handlers HTTP que no pertenecen a ninguna
// plataforma: administración cross-provider y health.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/socialgate/internal/account"
	httperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	"github.com/dropDatabas3/socialgate/internal/metrics"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// Management opera directamente sobre el AccountStore, sin pasar por ningún
// provider.
type Management struct {
	Accounts account.Store
}

// NewManagement crea el handler de administración.
func NewManagement(accounts account.Store) *Management {
	return &Management{Accounts: accounts}
}

type updateTokenRequest struct {
	CurrentToken string `json:"currentToken"`
	NewToken     string `json:"newToken"`
}

type updateTokenResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
}

// UpdateToken maneja POST /management/update-token.
//
// Códigos: 400 falta un token, 403 currentToken no resuelve, 409 newToken ya
// tomado, 200 con {accountId, accountName}, 500 falla de storage.
func (m *Management) UpdateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Op("Management.UpdateToken"))

	var req updateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.TokenRotations.WithLabelValues("bad_request").Inc()
		httperrors.WriteError(w, httperrors.ErrInvalidJSON.WithCause(err))
		return
	}

	if strings.TrimSpace(req.CurrentToken) == "" || strings.TrimSpace(req.NewToken) == "" {
		metrics.TokenRotations.WithLabelValues("bad_request").Inc()
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing 'currentToken' or 'newToken'"))
		return
	}

	rot, err := m.Accounts.RotateToken(ctx, req.CurrentToken, req.NewToken)
	switch {
	case err == nil:
		// ok
	case errors.Is(err, account.ErrInvalidToken) || errors.Is(err, account.ErrMissingToken):
		metrics.TokenRotations.WithLabelValues("forbidden").Inc()
		httperrors.WriteError(w, httperrors.ErrForbidden)
		return
	case errors.Is(err, account.ErrTokenTaken):
		metrics.TokenRotations.WithLabelValues("conflict").Inc()
		httperrors.WriteError(w, httperrors.ErrConflict)
		return
	default:
		metrics.TokenRotations.WithLabelValues("error").Inc()
		log.Error("rotation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	metrics.TokenRotations.WithLabelValues("ok").Inc()
	// El nombre/ID van al log; los tokens jamás.
	log.Info("token rotated",
		logger.AccountID(rot.AccountID),
		logger.AccountName(rot.AccountName),
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(updateTokenResponse{
		Success:     true,
		Message:     "Token updated successfully.",
		AccountID:   rot.AccountID,
		AccountName: rot.AccountName,
	})
}
