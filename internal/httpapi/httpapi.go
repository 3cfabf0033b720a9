package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"cellarpos/backend/internal/domain"
	"cellarpos/backend/internal/service"
	"cellarpos/backend/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type API struct {
	service       *service.Service
	verifier      *SessionVerifier
	allowedOrigin string
	logger        zerolog.Logger
}

func New(svc *service.Service, verifier *SessionVerifier, allowedOrigin string, logger zerolog.Logger) *API {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &API{
		service:       svc,
		verifier:      verifier,
		allowedOrigin: allowedOrigin,
		logger:        logger,
	}
}

func (a *API) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(requestLogger(&a.logger))
	router.Use(middleware.Recoverer)
	router.Use(a.securityHeaders)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	router.Get("/healthz", a.handleHealth)

	router.Route("/api/v1/budget", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Get("/forecast", a.handleForecast)
		r.Get("/forecasts", a.handleForecastHistory)
	})

	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.ForecastRequest{
		OrganizationID: firstNonEmpty(q.Get("organizationId"), q.Get("organization_id")),
		Months:         parsePositiveLimit(q.Get("months"), 0, 0),
		HistoryMonths:  parsePositiveLimit(firstNonEmpty(q.Get("historyMonths"), q.Get("history_months")), 0, 0),
	}

	resp, hit, err := a.service.Forecast(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleForecastHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	organizationID := firstNonEmpty(q.Get("organizationId"), q.Get("organization_id"))
	limit := parsePositiveLimit(q.Get("limit"), defaultHistoryLimit, maxHistoryLimit)

	resp, err := a.service.ListForecasts(r.Context(), organizationID, limit)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrOrganizationRequired), errors.Is(err, store.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx bodies stay generic; the cause only goes to the log.
	msg := err.Error()
	if status >= 500 {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
