package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/logger"
	"github.com/rs/zerolog"
)

// requireSession writes 401 and returns false when the request carries no session.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok || s.UserID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return middleware.Session{}, false
	}
	return s, true
}

// requestLogger prefers the request-scoped logger set by the RequestID middleware.
func requestLogger(r *http.Request, fallback zerolog.Logger, userID string) zerolog.Logger {
	log := fallback
	if l, ok := r.Context().Value(logger.LoggerKey).(zerolog.Logger); ok {
		log = l
	}
	if userID != "" {
		log = logger.ForUser(log, userID)
	}
	return log
}

// parsePeriods reads the comma separated periods query parameter.
// present is false when the parameter is absent, so callers can apply a default.
func parsePeriods(r *http.Request) (periods []domain.Period, present bool, err error) {
	values, present := r.URL.Query()["periods"]
	if !present {
		return nil, false, nil
	}
	periods = []domain.Period{}
	for _, v := range values {
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			p, err := domain.ParsePeriod(raw)
			if err != nil {
				return nil, true, err
			}
			periods = append(periods, p)
		}
	}
	return periods, true, nil
}

// parseNonNegative reads an optional integer query parameter.
func parseNonNegative(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
