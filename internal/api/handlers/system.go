package handlers

import (
	"database/sql"
	"net/http"

	"github.com/whalewatch/whale-watcher/internal/api/response"
	"github.com/whalewatch/whale-watcher/internal/database"
)

// SystemHandler handles system-level HTTP requests
type SystemHandler struct {
	db *sql.DB
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *sql.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health reports whether the database connection is usable.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := database.HealthCheck(h.db); err != nil {
		response.RespondError(w, http.StatusServiceUnavailable, "database unavailable", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
