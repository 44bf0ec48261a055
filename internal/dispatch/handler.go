// Package dispatch exposes the command registry over HTTP: one uniform
// execution endpoint plus the two discovery endpoints. It owns the
// per-request pipeline ordering; the validation steps themselves live on
// the contract.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/af-corp/commandgate/internal/auth"
	"github.com/af-corp/commandgate/internal/authz"
	"github.com/af-corp/commandgate/internal/command"
	"github.com/af-corp/commandgate/internal/config"
	"github.com/af-corp/commandgate/internal/httputil"
	"github.com/af-corp/commandgate/internal/ratelimit"
	"github.com/af-corp/commandgate/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

// PermissionChecker is the authorization collaborator: it decides HOW
// permission membership is established, while each contract decides
// WHICH permissions it requires.
type PermissionChecker interface {
	HasPermissions(ctx context.Context, subject authz.Subject, command string, required []string) bool
}

// Handler holds dependencies for the command HTTP handlers.
type Handler struct {
	registry *command.Registry
	checker  PermissionChecker
	quota    *ratelimit.QuotaTracker
	metrics  *telemetry.Metrics
	cfg      func() *config.Config
}

func NewHandler(registry *command.Registry, checker PermissionChecker, quota *ratelimit.QuotaTracker, metrics *telemetry.Metrics, cfg func() *config.Config) *Handler {
	return &Handler{
		registry: registry,
		checker:  checker,
		quota:    quota,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Execute handles POST /v1/commands/{name}. The pipeline runs in fixed
// order (auth, permissions, existence, types), short-circuiting on the
// first failure; the handler body runs only after every check passes.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()
	name := chi.URLParam(r, "name")

	cmd, ok := h.registry.Lookup(name)
	if !ok {
		h.reject(w, reqID, name, receivedAt, &command.ValidationError{Kind: command.ErrUnknownCommand})
		return
	}
	contract := cmd.Contract

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		authInfo = auth.Anonymous()
	}

	if !contract.ValidateAuth(authInfo.Authenticated()) {
		h.reject(w, reqID, name, receivedAt, &command.ValidationError{Kind: command.ErrUnauthenticated})
		return
	}

	hasPerms := h.checker.HasPermissions(r.Context(), subjectOf(authInfo), name, contract.Permissions)
	if !contract.ValidatePermissions(hasPerms) {
		h.reject(w, reqID, name, receivedAt, &command.ValidationError{Kind: command.ErrUnauthorized})
		return
	}

	data, err := h.parseData(r)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Malformed request body: "+err.Error())
		return
	}

	if err := contract.ValidateParamExistence(data); err != nil {
		h.reject(w, reqID, name, receivedAt, err)
		return
	}

	typed, err := contract.ValidateParamTypes(data)
	if err != nil {
		h.reject(w, reqID, name, receivedAt, err)
		return
	}

	contract.Normalize(typed)
	if err := contract.CheckRules(typed); err != nil {
		h.reject(w, reqID, name, receivedAt, err)
		return
	}
	contract.ApplyDefaults(typed)

	if cmd.Handler == nil {
		slog.Error("command has no handler", "command", name)
		h.reject(w, reqID, name, receivedAt, &command.ValidationError{Kind: command.ErrHandlerNotImplemented})
		return
	}

	result, err := cmd.Handler(r.Context(), typed)
	if err != nil {
		slog.Error("command handler failed", "request_id", reqID, "command", name, "error", err)
		h.record(name, "500", receivedAt)
		httputil.WriteInternalError(w, reqID, "Command execution failed")
		return
	}

	if h.quota != nil && authInfo.Authenticated() {
		h.quota.RecordExecution(r.Context(), authInfo.KeyID)
	}

	slog.Info("command executed",
		"request_id", reqID,
		"command", name,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
		"org_id", authInfo.OrganizationID,
		"key_id", authInfo.KeyID,
	)
	h.record(name, "200", receivedAt)
	httputil.WriteResults(w, reqID, result, nil)
}

// Definitions handles GET /v1/commands: the definition of every
// registered command, for client-side pre-flight validation.
func (h *Handler) Definitions(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	defs := h.registry.Definitions()
	out := make([]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, d)
	}
	httputil.WriteResults(w, reqID, out, nil)
}

// Available handles GET /v1/commands/available: only the definitions of
// commands the current caller may invoke, reusing the auth and
// permission steps of the execution pipeline.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		authInfo = auth.Anonymous()
	}

	var out []any
	for _, cmd := range h.registry.All() {
		contract := cmd.Contract
		if !contract.ValidateAuth(authInfo.Authenticated()) {
			continue
		}
		hasPerms := h.checker.HasPermissions(r.Context(), subjectOf(authInfo), contract.Name, contract.Permissions)
		if !contract.ValidatePermissions(hasPerms) {
			continue
		}
		out = append(out, contract.Definition())
	}
	if out == nil {
		out = []any{}
	}
	httputil.WriteResults(w, reqID, out, nil)
}

// parseData extracts the command data mapping from an urlencoded or
// multipart body.
func (h *Handler) parseData(r *http.Request) (command.Data, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		maxMemory := h.cfg().Server.MaxFormMemory
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return command.Data{}, err
		}
		return command.NewData(url.Values(r.MultipartForm.Value), r.MultipartForm.File), nil
	}
	if err := r.ParseForm(); err != nil {
		return command.Data{}, err
	}
	return command.NewData(r.PostForm, nil), nil
}

// reject writes the failure envelope for a pipeline rejection and records
// it. The status mapping is the error-kind contract: missing/invalid
// params are client errors, auth failures unauthorized, permission
// failures forbidden.
func (h *Handler) reject(w http.ResponseWriter, reqID, name string, receivedAt time.Time, err error) {
	var verr *command.ValidationError
	if !errors.As(err, &verr) {
		h.record(name, "500", receivedAt)
		httputil.WriteInternalError(w, reqID, err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.RecordValidationFailure(name, string(verr.Kind))
	}

	switch verr.Kind {
	case command.ErrMissingParams, command.ErrInvalidParams:
		h.record(name, "400", receivedAt)
		httputil.WriteBadRequestError(w, reqID, verr.Error())
	case command.ErrUnauthenticated:
		h.record(name, "401", receivedAt)
		httputil.WriteAuthError(w, reqID, verr.Error())
	case command.ErrUnauthorized:
		h.record(name, "403", receivedAt)
		httputil.WriteForbiddenError(w, reqID, verr.Error())
	case command.ErrUnknownCommand:
		h.record(name, "404", receivedAt)
		httputil.WriteNotFoundError(w, reqID, verr.Error())
	case command.ErrHandlerNotImplemented:
		h.record(name, "501", receivedAt)
		httputil.WriteNotImplementedError(w, reqID, verr.Error())
	default:
		h.record(name, "500", receivedAt)
		httputil.WriteInternalError(w, reqID, verr.Error())
	}
}

func (h *Handler) record(name, status string, receivedAt time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordCommand(name, status, float64(time.Since(receivedAt).Milliseconds()))
}

func subjectOf(info *auth.AuthInfo) authz.Subject {
	return authz.Subject{
		ID:          info.UserID,
		Org:         info.OrganizationID,
		Permissions: info.Permissions,
	}
}
