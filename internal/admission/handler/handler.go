// Package handler exposes the admission gate as a standalone endpoint so
// sibling modules can pre-check an action without committing it.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dustledger/internal/admission/models"
	"dustledger/internal/transport/http/shared"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/requestcontext"
)

// Service is the admission surface the handler delegates to.
type Service interface {
	Check(ctx context.Context, req models.Request) (*models.Result, error)
}

type Handler struct {
	admission Service
	logger    *slog.Logger
}

func New(admission Service, logger *slog.Logger) *Handler {
	return &Handler{admission: admission, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admission/check", h.handleCheck)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	// The authenticated caller wins over whatever the body claims.
	if caller := requestcontext.Caller(r.Context()); caller != "" {
		req.Caller = caller
	}

	result, err := h.admission.Check(r.Context(), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if result.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	}
	status := http.StatusOK
	if !result.Allowed {
		status = dErrors.HTTPStatus(result.Code)
	}
	shared.WriteJSON(w, status, result)
}
