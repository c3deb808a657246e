// Package api assembles the HTTP routes of the dashboard service.
package api

import (
	"net/http"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/api/handlers"
	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// PublicPaths are served without a bearer token.
var PublicPaths = []string{"/health", "/api/convert"}

// Handlers groups the route handlers.
type Handlers struct {
	Convert   *handlers.ConvertHandler
	Uploads   *handlers.UploadsHandler
	Jobs      *handlers.JobsHandler
	Dashboard *handlers.DashboardHandler
}

// NewRouter registers every route on a new mux.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/convert", only(http.MethodPost, h.Convert.Convert))

	// Upload endpoints
	mux.HandleFunc("/api/uploads", only(http.MethodPost, h.Uploads.Upload))
	mux.HandleFunc("/api/uploads/async", only(http.MethodPost, h.Uploads.UploadAsync))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", only(http.MethodGet, h.Jobs.ListJobs))
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	})

	// Transaction and analysis endpoints
	mux.HandleFunc("/api/transactions", only(http.MethodGet, h.Dashboard.Transactions))
	mux.HandleFunc("/api/periods", only(http.MethodGet, h.Dashboard.Periods))
	mux.HandleFunc("/api/dashboard", only(http.MethodGet, h.Dashboard.Dashboard))
	mux.HandleFunc("/api/summary", only(http.MethodGet, h.Dashboard.Summary))
	mux.HandleFunc("/api/rides", only(http.MethodGet, h.Dashboard.Rides))
	mux.HandleFunc("/api/breakdown", only(http.MethodGet, h.Dashboard.Breakdown))
	mux.HandleFunc("/api/top-expenses", only(http.MethodGet, h.Dashboard.TopExpenses))

	// /api/periods/{period} and /api/periods/{period}/reingest
	mux.HandleFunc("/api/periods/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/periods/")
		period, action, _ := strings.Cut(rest, "/")
		if period == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Period is required")
			return
		}
		switch {
		case action == "" && r.Method == http.MethodDelete:
			h.Dashboard.DeletePeriod(w, r, period)
		case action == "reingest" && r.Method == http.MethodPost:
			h.Uploads.Reingest(w, r, domain.Period(period))
		case action == "" || action == "reingest":
			methodNotAllowed(w)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	mux.HandleFunc("/api/me", only(http.MethodGet, handlers.Me))
	mux.HandleFunc("/health", handlers.Health)

	return mux
}

// NewHandler wraps the router in the middleware chain.
func NewHandler(h Handlers, log zerolog.Logger, auth *middleware.Authenticator) http.Handler {
	return middleware.Chain(NewRouter(h), log, auth)
}

func only(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		fn(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
