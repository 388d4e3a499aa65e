package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/Kelokecl/keloke-trends-worker/internal/config"
	"github.com/Kelokecl/keloke-trends-worker/internal/worker"
)

type RunHandler struct {
	CfgVal   *atomic.Value // config.Config
	RunBatch func(ctx context.Context, params worker.RunParams) (worker.Summary, error)
}

type runRequest struct {
	SiteID string `json:"site_id"`
	Batch  int    `json:"batch"`
	Limit  int    `json:"limit"`
}

// Run processes one bounded batch of pending jobs. All body fields are
// optional; an empty body runs with configured defaults. An Authorization
// bearer header overrides the stored access token for this invocation only.
func (h RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteFail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	params := worker.RunParams{
		SiteID:      strings.TrimSpace(req.SiteID),
		Batch:       req.Batch,
		Limit:       req.Limit,
		HeaderToken: bearerToken(r),
	}
	if params.SiteID == "" {
		params.SiteID = config.SiteID(cfg.Marketplace.Country)
	}
	if params.Batch <= 0 {
		params.Batch = cfg.Worker.Batch
	}
	if params.Limit <= 0 {
		params.Limit = cfg.Worker.Limit
	}

	sum, err := h.RunBatch(r.Context(), params)
	if err != nil {
		if errors.Is(err, worker.ErrRunInProgress) {
			WriteFail(w, http.StatusConflict, "run_in_progress")
			return
		}
		WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sum)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	const prefix = "bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
