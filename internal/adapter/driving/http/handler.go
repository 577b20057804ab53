// Package httphandler is the HTTP driving adapter that serves the badge REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/badgehub/internal/application"
	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// maxRequestBody caps award and revoke request bodies.
const maxRequestBody = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	issuers     *application.IssuerRegistry
	templates   driven.TemplateStore
	credentials driven.UserCredentialStore
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	issuers *application.IssuerRegistry,
	templates driven.TemplateStore,
	credentials driven.UserCredentialStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		issuers:     issuers,
		templates:   templates,
		credentials: credentials,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/templates", h.ListTemplates)
	mux.HandleFunc("GET /api/v1/templates/{id}", h.GetTemplate)
	mux.HandleFunc("POST /api/v1/templates/{id}/award", h.Award)
	mux.HandleFunc("POST /api/v1/templates/{id}/revoke", h.Revoke)
	mux.HandleFunc("GET /api/v1/users/{username}/credentials", h.ListUserCredentials)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListTemplates returns every badge definition.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, toTemplateResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTemplate returns one badge definition with its rendered description.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}

	tmpl, err := h.templates.Get(r.Context(), id)
	if errors.Is(err, driven.ErrTemplateNotFound) {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get template", "template_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toTemplateResponse(*tmpl)
	resp.DescriptionHTML = RenderDescription(tmpl.Description)
	writeJSON(w, http.StatusOK, resp)
}

// Award grants the template to the user named in the request body.
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, "award", func(ctx context.Context, issuer *application.BadgeIssuer, id int64, username string) (*model.UserCredential, error) {
		return issuer.Award(ctx, username, id)
	})
}

// Revoke withdraws the template from the user named in the request body.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, "revoke", func(ctx context.Context, issuer *application.BadgeIssuer, id int64, username string) (*model.UserCredential, error) {
		return issuer.Revoke(ctx, id, username)
	})
}

type issueFunc func(ctx context.Context, issuer *application.BadgeIssuer, id int64, username string) (*model.UserCredential, error)

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, action string, fn issueFunc) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}

	var req IssueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	issuer, err := h.issuers.ForTemplate(r.Context(), id)
	if errors.Is(err, driven.ErrTemplateNotFound) {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve issuer", "template_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cred, err := fn(r.Context(), issuer, id, username)
	if err == nil {
		writeJSON(w, http.StatusOK, toCredentialResponse(*cred))
		return
	}

	var provErr *driven.BadgeProviderError
	switch {
	case errors.As(err, &provErr):
		h.logger.Warn("badge provider rejected "+action,
			"template_id", id,
			"username", username,
			"provider", provErr.Provider,
			"status_code", provErr.StatusCode,
			"error", err,
		)
		resp := ProviderErrorResponse{Error: err.Error(), Provider: provErr.Provider}
		if cred != nil {
			c := toCredentialResponse(*cred)
			resp.Credential = &c
		}
		writeJSON(w, http.StatusBadGateway, resp)
	case errors.Is(err, driven.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template not found")
	case errors.Is(err, driven.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Error("failed to "+action+" badge", "template_id", id, "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ListUserCredentials returns every credential record of a user.
func (h *Handler) ListUserCredentials(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	creds, err := h.credentials.ListByUsername(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to list credentials", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// templateID parses the {id} path value, writing a 400 when it is malformed.
func templateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid template id")
		return 0, false
	}
	return id, true
}
