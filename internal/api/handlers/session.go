package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
)

// Me handles GET /api/me.
func Me(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, session)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
