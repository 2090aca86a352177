package api_profile_activate

import (
	"net/http"
	"strings"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
)

// Handler connects a saved profile and makes it the active one. An empty id
// clears the active profile.
type Handler struct {
	store   *state.Store
	invoker gateway.Invoker
}

// New creates a new profile activate handler
func New(store *state.Store, invoker gateway.Invoker) *Handler {
	return &Handler{store: store, invoker: invoker}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.Respond(w, r, api.Error("profile_activate must be POST"))
		return
	}

	if err := r.ParseForm(); err != nil {
		api.Respond(w, r, api.Error("failed to parse form"))
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		_ = h.store.SetActiveProfile("")
		api.Respond(w, r, api.Success("no active profile"))
		return
	}

	profile, ok := h.store.Profile(id)
	if !ok {
		api.Respond(w, r, api.Error("profile not found"))
		return
	}

	// Connect first so a failed connection leaves the previous selection intact.
	res, err := gateway.ConnectRedis(r.Context(), h.invoker, profile)
	if err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}
	if !res.IsOk() {
		api.Respond(w, r, api.Error(res.Message()))
		return
	}

	if err := h.store.SetActiveProfile(id); err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}

	view := h.store.View()
	api.Respond(w, r, api.SuccessWithData(res.Message(), map[string]any{
		"id":               id,
		"current_db_index": view.DatabaseIndex,
	}))
}
