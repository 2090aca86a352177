package api_csrf

import (
	"net/http"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/shared/constants"
	"github.com/dracory/weeredis/shared/session"
)

// Handler issues the CSRF token of the caller's session. Clients without a
// rendered page use it before their first POST.
type Handler struct {
	sessions *session.Manager
}

// New creates a new csrf handler
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.Respond(w, r, api.Error("method not allowed"))
		return
	}

	token := h.sessions.CSRFToken(w, r)
	api.Respond(w, r, api.SuccessWithData("", map[string]any{
		constants.CSRFFormKey: token,
		"header":              constants.CSRFHeaderKey,
	}))
}
