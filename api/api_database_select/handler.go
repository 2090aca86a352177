package api_database_select

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
)

// Handler switches the active connection to another logical database.
type Handler struct {
	store   *state.Store
	invoker gateway.Invoker
}

// New creates a new database select handler
func New(store *state.Store, invoker gateway.Invoker) *Handler {
	return &Handler{store: store, invoker: invoker}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.Respond(w, r, api.Error("database_select must be POST"))
		return
	}

	if err := r.ParseForm(); err != nil {
		api.Respond(w, r, api.Error("failed to parse form"))
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("db")))
	if err != nil || index < 0 {
		api.Respond(w, r, api.Error("db must be a non-negative integer"))
		return
	}

	active, ok := h.store.ActiveProfile()
	if !ok {
		api.Respond(w, r, api.Error("no active profile"))
		return
	}

	count, err := gateway.GetDbCount(r.Context(), h.invoker, active.ID)
	if err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}
	if n, ok := count.Value(); ok && index >= n {
		api.Respond(w, r, api.Error(fmt.Sprintf("db must be below %d", n)))
		return
	}

	res, err := gateway.SelectDb(r.Context(), h.invoker, active.ID, index)
	if err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}
	if !res.IsOk() {
		api.Respond(w, r, api.Error(res.Message()))
		return
	}

	if err := h.store.SetDatabaseIndex(index); err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}

	api.Respond(w, r, api.SuccessWithData(res.Message(), map[string]any{
		"current_db_index": index,
	}))
}
