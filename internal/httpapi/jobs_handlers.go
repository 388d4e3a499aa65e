package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kelokecl/keloke-trends-worker/internal/events"
	"github.com/Kelokecl/keloke-trends-worker/internal/store"
)

type JobsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := store.ListJobs(r.Context(), h.DB, limit)
	if err != nil {
		WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "jobs": jobs})
}

type seedRequest struct {
	SiteID     string `json:"site_id"`
	CategoryID string `json:"category_id"`
}

// Seed enqueues a pending job. Job creation normally happens outside this
// service; this endpoint exists for local development.
func (h JobsHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteFail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	req.SiteID = strings.TrimSpace(req.SiteID)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	if req.SiteID == "" || req.CategoryID == "" {
		WriteFail(w, http.StatusBadRequest, "site_id and category_id are required")
		return
	}

	id, err := store.InsertJob(r.Context(), h.DB, req.SiteID, req.CategoryID)
	if err != nil {
		WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.Event{Type: "job_created", JobID: id})
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
