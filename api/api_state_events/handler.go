package api_state_events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/shared/state"
)

// DefaultHeartbeat is the interval of keep-alive comments on an idle stream.
const DefaultHeartbeat = 25 * time.Second

// Handler streams store change events as server-sent events.
type Handler struct {
	store     *state.Store
	heartbeat time.Duration
}

// New creates a new state events handler
func New(store *state.Store) *Handler {
	return &Handler{store: store, heartbeat: DefaultHeartbeat}
}

// WithHeartbeat overrides the keep-alive interval.
func (h *Handler) WithHeartbeat(d time.Duration) *Handler {
	h.heartbeat = d
	return h
}

type payload struct {
	Revision uint64 `json:"revision"`
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.Respond(w, r, api.Error("method not allowed"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Respond(w, r, api.Error("streaming unsupported"))
		return
	}

	// A slow reader drops events; every event carries the latest revision.
	events := make(chan state.Event, 32)
	cancel := h.store.Subscribe(func(e state.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	view := h.store.View()
	writeEvent(w, state.EventState.String(), view.Revision)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			writeEvent(w, e.Kind.String(), e.Revision)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, kind string, revision uint64) {
	data, _ := json.Marshal(payload{Revision: revision})
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
}
