package api_profile_delete

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
)

// Handler removes a saved profile and closes its backend connection.
type Handler struct {
	store   *state.Store
	invoker gateway.Invoker
	logger  *slog.Logger
}

// New creates a new profile delete handler
func New(store *state.Store, invoker gateway.Invoker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, invoker: invoker, logger: logger}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.Respond(w, r, api.Error("profile_delete must be POST"))
		return
	}

	if err := r.ParseForm(); err != nil {
		api.Respond(w, r, api.Error("failed to parse form"))
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		api.Respond(w, r, api.Error("id is required"))
		return
	}

	if !h.store.DeleteProfile(id) {
		api.Respond(w, r, api.Error("profile not found"))
		return
	}

	// The profile may never have been connected; "connection not found" is expected then.
	res, err := gateway.DisconnectRedis(r.Context(), h.invoker, id)
	if err != nil {
		h.logger.Warn("profile_delete: disconnect failed", "profile", id, "error", err)
	} else if !res.IsOk() {
		h.logger.Debug("profile_delete: nothing to disconnect", "profile", id, "message", res.Message())
	}

	api.Respond(w, r, api.SuccessWithData("profile deleted", map[string]any{
		"id":        id,
		"active_id": h.store.View().ActiveID,
	}))
}
