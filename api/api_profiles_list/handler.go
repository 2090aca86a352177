package api_profiles_list

import (
	"net/http"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/shared/state"
)

// Profile is a saved connection profile as shown to the browser. Passwords
// never leave the server; HasPassword tells the form whether one is set.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username,omitempty"`
	HasPassword bool   `json:"has_password"`
	DB          *int   `json:"db,omitempty"`
	Separator   string `json:"separator"`
	Active      bool   `json:"active"`
}

// Handler handles the profiles list API requests
type Handler struct {
	store *state.Store
}

// New creates a new profiles list handler
func New(store *state.Store) *Handler {
	return &Handler{store: store}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.Respond(w, r, api.Error("method not allowed"))
		return
	}

	api.Respond(w, r, api.SuccessWithData("", map[string]any{
		"profiles":  h.List(),
		"active_id": h.store.View().ActiveID,
	}))
}

// List returns the saved profiles in order.
func (h *Handler) List() []Profile {
	view := h.store.View()
	out := make([]Profile, 0, len(view.Profiles))
	for _, p := range view.Profiles {
		out = append(out, Profile{
			ID:          p.ID,
			Name:        p.Name,
			Host:        p.Host,
			Port:        p.Port,
			Username:    p.Username,
			HasPassword: p.Password != "",
			DB:          p.DB,
			Separator:   p.Separator,
			Active:      p.ID == view.ActiveID,
		})
	}
	return out
}
