package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialgate/internal/metrics"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/session"
	"github.com/dropDatabas3/socialgate/internal/util"
)

// Handler ejecuta el flujo OAuth común sobre un Provider concreto.
//
// Máquina de estados por request:
//
//	Login:    Unauthenticated → AuthorizationRequested (redirect, sin side effects)
//	Callback: AuthorizationRequested → CallbackPending → Authenticated | AuthFailed
//	Post:     requiere Authenticated (sesión persistida)
type Handler struct {
	p    Provider
	deps Deps
}

// NewHandler crea el handler HTTP para un provider instanciado.
func NewHandler(p Provider, deps Deps) *Handler {
	return &Handler{p: p, deps: deps}
}

// Login maneja GET /<name>/login?authtoken=<secret>.
// Resuelve la cuenta y redirige al endpoint de autorización del IDP con el
// secret token como state opaco. Este paso no persiste nada.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authtoken := r.URL.Query().Get("authtoken")

	acct, err := h.deps.Accounts.Resolve(ctx, authtoken)
	if err != nil {
		// Toda falla de resolución en login es un 403 para el caller.
		logger.From(ctx).Warn("login rejected",
			logger.Provider(h.p.Name()),
			logger.String("authtoken", util.MaskToken(authtoken)),
			logger.Err(err),
		)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	authURL, err := h.p.AuthorizeURL(acct, authtoken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	logger.From(ctx).Info("authorization requested",
		logger.Provider(h.p.Name()),
		logger.AccountID(acct.ID),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback maneja GET /<name>/callback?code&state&error.
//
// Si el IDP mandó error se va directo a AuthFailed sin intentar exchange.
// Si no: re-resuelve la cuenta desde state, canjea el code, selecciona la
// estrategia de identidad y recién ahí persiste la sesión completa.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Provider(h.p.Name()))
	q := r.URL.Query()

	if idpErr := q.Get("error"); idpErr != "" {
		metrics.Logins.WithLabelValues(h.p.Name(), "idp_error").Inc()
		log.Warn("idp returned error", logger.String("error", idpErr))
		fmt.Fprintf(w, "%s Error: %s", h.p.DisplayName(), idpErr)
		return
	}

	code := q.Get("code")
	state := q.Get("state") // = authtoken original

	acct, err := h.deps.Accounts.Resolve(ctx, state)
	if err != nil {
		h.callbackFail(w, log, "error", err)
		return
	}

	grant, err := h.p.Exchange(ctx, acct, code)
	if err != nil {
		h.callbackFail(w, log, "exchange_error", err)
		return
	}
	log.Info("code exchanged", logger.AccountID(acct.ID), logger.String("granted_scopes", grant.Scope))

	ident, err := h.p.ResolveIdentity(ctx, acct, grant)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrIdentityUnresolvable) {
			result = "identity_unresolvable"
		}
		h.callbackFail(w, log, result, err)
		return
	}

	sess := &session.Session{
		UserURN:      ident.UserURN,
		Name:         ident.Name,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
		Scope:        grant.Scope,
		LastUpdated:  time.Now().UTC(),
		Raw:          grant.Raw,
	}
	if err := h.deps.Sessions.Save(ctx, acct.ID, h.p.Name(), sess); err != nil {
		h.callbackFail(w, log, "error", err)
		return
	}

	metrics.Logins.WithLabelValues(h.p.Name(), "ok").Inc()
	log.Info("authenticated",
		logger.AccountID(acct.ID),
		logger.String("user_urn", sess.UserURN),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<h1>✅ Connected!</h1><p>Mode: %s</p><p>You can now use the Post endpoint.</p>", sess.Name)
}

func (h *Handler) callbackFail(w http.ResponseWriter, log *zap.Logger, result string, err error) {
	metrics.Logins.WithLabelValues(h.p.Name(), result).Inc()
	log.Warn("callback failed", logger.String("result", result), logger.Err(err))
	http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
}

// postResponse es el cuerpo JSON de la acción de publicación.
type postResponse struct {
	Success bool   `json:"success"`
	Mode    string `json:"mode,omitempty"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Post maneja POST /<name>/post?authtoken=<secret>&dryrun=<true|false>.
//
// Dry-run valida cuenta+sesión y arma el payload sin tocar el remoto ni la
// sesión; debe responder éxito para confirmar que la autenticación sirve.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Provider(h.p.Name()))
	q := r.URL.Query()
	dryrun := q.Get("dryrun") == "true"

	mode := "live"
	if dryrun {
		mode = "dry-run"
	}

	var in PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		metrics.Posts.WithLabelValues(h.p.Name(), mode, "error").Inc()
		writeJSONError(w, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	acct, err := h.deps.Accounts.Resolve(ctx, q.Get("authtoken"))
	if err != nil {
		metrics.Posts.WithLabelValues(h.p.Name(), mode, "error").Inc()
		writeJSONError(w, err)
		return
	}

	sess, err := h.deps.Sessions.Get(ctx, acct.ID, h.p.Name())
	if err != nil {
		metrics.Posts.WithLabelValues(h.p.Name(), mode, "error").Inc()
		writeJSONError(w, err)
		return
	}

	payload, err := h.p.BuildPost(sess, in)
	if err != nil {
		metrics.Posts.WithLabelValues(h.p.Name(), mode, "error").Inc()
		writeJSONError(w, err)
		return
	}

	if dryrun {
		if b, err := json.Marshal(payload); err == nil {
			log.Debug("dry-run payload",
				logger.AccountID(acct.ID),
				logger.String("user_urn", sess.UserURN),
				logger.String("payload", string(b)),
			)
		}
		metrics.Posts.WithLabelValues(h.p.Name(), "dry-run", "ok").Inc()
		log.Info("dry-run validation successful", logger.AccountName(acct.Name), logger.Mode("dry-run"))
		writeJSON(w, http.StatusOK, postResponse{
			Success: true,
			Mode:    "dry-run",
			Message: fmt.Sprintf("Token is valid and payload is ready. No post was sent to %s.", h.p.DisplayName()),
		})
		return
	}

	id, err := h.p.Publish(ctx, sess, payload)
	if err != nil {
		metrics.Posts.WithLabelValues(h.p.Name(), "live", "error").Inc()
		writeJSONError(w, err)
		return
	}

	metrics.Posts.WithLabelValues(h.p.Name(), "live", "ok").Inc()
	log.Info("post published", logger.AccountID(acct.ID), logger.String("post_id", id))
	writeJSON(w, http.StatusOK, postResponse{Success: true, ID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError responde 500 {"error": ...}. Si la causa es un UpstreamError
// con body estructurado, ese body se propaga verbatim.
func writeJSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)

	var ue *UpstreamError
	if errors.As(err, &ue) && len(ue.Body) > 0 {
		var remote json.RawMessage
		if json.Unmarshal(ue.Body, &remote) == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": remote})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": string(ue.Body)})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}
