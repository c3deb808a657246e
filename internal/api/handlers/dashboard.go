package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/rs/zerolog"
)

// DashboardHandler serves the stored transactions and the views computed from them.
type DashboardHandler struct {
	repo  store.Repository
	rules config.Rules
	log   zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(repo store.Repository, rules config.Rules, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{repo: repo, rules: rules, log: log}
}

// load reads the caller's data. It writes the error response and returns false on failure.
func (h *DashboardHandler) load(w http.ResponseWriter, r *http.Request) (middleware.Session, domain.TransactionsByPeriod, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return session, nil, false
	}
	data, err := store.LoadByPeriod(r.Context(), h.repo, session.UserID)
	if err != nil {
		reqLog := requestLogger(r, h.log, session.UserID)
		reqLog.Error().Err(err).Msg("Failed to load transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transactions")
		return session, nil, false
	}
	return session, data, true
}

// selection resolves ?periods=. An absent parameter selects the latest window; an empty one selects nothing.
func (h *DashboardHandler) selection(w http.ResponseWriter, r *http.Request, data domain.TransactionsByPeriod, window int) ([]domain.Period, bool) {
	periods, present, err := parsePeriods(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if !present {
		if window <= 0 {
			return data.Periods(), true
		}
		return analytics.LatestPeriods(data, window), true
	}
	return analytics.NormalizeSelection(periods), true
}

// Transactions handles GET /api/transactions.
func (h *DashboardHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"periods": data,
	})
}

// Periods handles GET /api/periods.
func (h *DashboardHandler) Periods(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	periods, err := h.repo.ListPeriods(r.Context(), session.UserID)
	if err != nil {
		reqLog := requestLogger(r, h.log, session.UserID)
		reqLog.Error().Err(err).Msg("Failed to list periods")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list periods")
		return
	}
	if periods == nil {
		periods = []domain.Period{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"periods": periods,
	})
}

// Dashboard handles GET /api/dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	selected, ok := h.selection(w, r, data, h.rules.DashboardWindow)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analytics.Dashboard(data, selected))
}

// Summary handles GET /api/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	selected, ok := h.selection(w, r, data, h.rules.DashboardWindow)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analytics.Summarize(data, selected, h.rules.RideRules()))
}

// Rides handles GET /api/rides.
func (h *DashboardHandler) Rides(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	selected, ok := h.selection(w, r, data, h.rules.DashboardWindow)
	if !ok {
		return
	}

	rides := analytics.AnalyzeRides(data, selected, h.rules.RideRules())
	resp := map[string]interface{}{
		"periods": selected,
		"rides":   rides,
	}
	if rides == nil {
		resp["message"] = analytics.NoDataMessage
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Breakdown handles GET /api/breakdown.
func (h *DashboardHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	selected, ok := h.selection(w, r, data, h.rules.DashboardWindow)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analytics.Breakdown(data, selected, h.rules.BreakdownRules()))
}

// TopExpenses handles GET /api/top-expenses. Without ?periods= every period is considered.
func (h *DashboardHandler) TopExpenses(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.load(w, r)
	if !ok {
		return
	}
	selected, ok := h.selection(w, r, data, 0)
	if !ok {
		return
	}
	limit, err := parseNonNegative(r, "limit", h.rules.TopExpenses)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	top := analytics.TopExpenses(data.Select(selected), limit)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"periods":  selected,
		"expenses": top,
	})
}

// DeletePeriod handles DELETE /api/periods/{period}.
func (h *DashboardHandler) DeletePeriod(w http.ResponseWriter, r *http.Request, raw string) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	log := requestLogger(r, h.log, session.UserID)

	period, err := domain.ParsePeriod(raw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.repo.DeleteTransactions(r.Context(), session.UserID, period)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Period not found")
			return
		}
		log.Error().Err(err).Str("period", string(period)).Msg("Failed to delete period")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete period")
		return
	}

	log.Info().Str("period", string(period)).Int("deleted", deleted).Msg("Period deleted")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"deleted": deleted,
	})
}
