// Package handler exposes the read-only observability endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dustledger/internal/observer/models"
	"dustledger/internal/transport/http/shared"
	dErrors "dustledger/pkg/errors"
)

// Service is the observability surface the handler delegates to.
type Service interface {
	EconomySnapshot(ctx context.Context) (*models.EconomySnapshot, error)
	SystemTrajectory(ctx context.Context, windowDays int) (*models.SystemTrajectory, error)
	DetectEmergentPatterns(ctx context.Context) []models.Pattern
}

type Handler struct {
	observer Service
	logger   *slog.Logger
}

func New(observer Service, logger *slog.Logger) *Handler {
	return &Handler{observer: observer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/observer", func(r chi.Router) {
		r.Get("/snapshot", h.handleSnapshot)
		r.Get("/trajectory", h.handleTrajectory)
		r.Get("/patterns", h.handlePatterns)
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.observer.EconomySnapshot(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	windowDays := 0
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "window_days must be an integer"))
			return
		}
		windowDays = parsed
	}
	trajectory, err := h.observer.SystemTrajectory(r.Context(), windowDays)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, trajectory)
}

func (h *Handler) handlePatterns(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.observer.DetectEmergentPatterns(r.Context()))
}
