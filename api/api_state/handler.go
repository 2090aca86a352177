package api_state

import (
	"net/http"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/shared/state"
)

// Handler returns the current view of the session store.
type Handler struct {
	store *state.Store
}

// New creates a new state handler
func New(store *state.Store) *Handler {
	return &Handler{store: store}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.Respond(w, r, api.Error("method not allowed"))
		return
	}

	view := h.store.View()
	for i := range view.Profiles {
		view.Profiles[i].Password = ""
	}

	api.Respond(w, r, api.SuccessWithData("", map[string]any{
		"state": view,
	}))
}
