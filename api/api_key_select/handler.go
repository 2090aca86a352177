package api_key_select

import (
	"net/http"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/types"
)

// Handler marks a key of the active connection as the current one and
// returns its detail. An empty key clears the selection.
type Handler struct {
	store   *state.Store
	invoker gateway.Invoker
}

// New creates a new key select handler
func New(store *state.Store, invoker gateway.Invoker) *Handler {
	return &Handler{store: store, invoker: invoker}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.Respond(w, r, api.Error("key_select must be POST"))
		return
	}

	if err := r.ParseForm(); err != nil {
		api.Respond(w, r, api.Error("failed to parse form"))
		return
	}

	key := r.Form.Get("key")
	if key == "" {
		h.store.ResetKeyState()
		api.Respond(w, r, api.Success("selection cleared"))
		return
	}

	active, ok := h.store.ActiveProfile()
	if !ok {
		api.Respond(w, r, api.Error("no active profile"))
		return
	}

	res, err := gateway.GetKeyDetail(r.Context(), h.invoker, active.ID, key)
	if err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}
	detail, ok := res.Value()
	if !ok {
		api.Respond(w, r, api.Error(res.Message()))
		return
	}

	h.store.SetCurrentKey(key)
	h.store.SetCurrentKeyCount(ElementCount(detail))

	api.Respond(w, r, api.SuccessWithData("", map[string]any{
		"key": detail,
	}))
}

// ElementCount is the number of elements of a key value; 1 for strings.
func ElementCount(d types.KeyDetail) int64 {
	if d.Type == types.KeyTypeString {
		return 1
	}
	switch v := d.Value.(type) {
	case []any:
		return int64(len(v))
	case []string:
		return int64(len(v))
	case []types.HashField:
		return int64(len(v))
	case []types.ZSetMember:
		return int64(len(v))
	default:
		return 0
	}
}
