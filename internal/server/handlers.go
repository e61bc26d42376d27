package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service"
)

const healthProbeTimeout = 2 * time.Second

// internalErrorMessage is the only detail a 500 response carries.
const internalErrorMessage = "something went wrong, try again later"

type handlers struct {
	subscriptions service.SubscriptionService
	newsletters   service.NewsletterService
	health        HealthChecker
	logger        *slog.Logger
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	status := http.StatusOK
	payload := map[string]any{"status": "ok"}

	if h.health != nil {
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Error("health probe failed", slog.String("error", err.Error()))
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
		}
	}

	respondJSON(w, status, payload)
}

func (h *handlers) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}

	err := h.subscriptions.Register(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("name"))
	if err != nil {
		if errors.Is(err, model.ErrInvalidEmail) || errors.Is(err, model.ErrInvalidName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.logger.Error("failed to register subscriber", slog.String("error", err.Error()))
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *handlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		http.Error(w, "missing subscription token", http.StatusBadRequest)
		return
	}

	if err := h.subscriptions.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			http.Error(w, "invalid subscription token", http.StatusBadRequest)
			return
		}

		h.logger.Error("failed to confirm subscriber", slog.String("error", err.Error()))
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	var issue model.NewsletterIssue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		http.Error(w, "malformed JSON payload", http.StatusBadRequest)
		return
	}

	if err := h.newsletters.Publish(r.Context(), &issue); err != nil {
		if errors.Is(err, model.ErrMissingTitle) || errors.Is(err, model.ErrMissingContent) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.logger.Error("failed to publish newsletter", slog.String("error", err.Error()))
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
