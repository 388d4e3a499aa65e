package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/Kelokecl/keloke-trends-worker/internal/store"
)

type ItemsHandler struct {
	DB *sql.DB
}

func (h ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := store.ListItems(r.Context(), h.DB, limit)
	if err != nil {
		WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "items": items})
}
