package api_invoke

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
)

// MaxBodyBytes bounds an invoke request body. Imports carry whole key sets.
const MaxBodyBytes = 32 << 20

// Dispatcher runs one backend command on raw arguments.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error)
}

// keyListCommands change which keys exist.
var keyListCommands = map[string]bool{
	backend.CmdSetKey:     true,
	backend.CmdRenameKey:  true,
	backend.CmdDeleteKey:  true,
	backend.CmdImportKey:  true,
	backend.CmdImportKeys: true,
}

// keyContentCommands change the elements of an existing key.
var keyContentCommands = map[string]bool{
	backend.CmdSetKeyTTL:       true,
	backend.CmdUpdateHashField: true,
	backend.CmdDeleteHashField: true,
	backend.CmdUpdateListItem:  true,
	backend.CmdDeleteListItem:  true,
	backend.CmdAppendListItem:  true,
	backend.CmdAddSetItem:      true,
	backend.CmdDeleteSetItem:   true,
	backend.CmdAddZSetItem:     true,
	backend.CmdDeleteZSetItem:  true,
}

// Handler forwards a command to the backend and writes its envelope verbatim.
type Handler struct {
	dispatcher Dispatcher
	store      *state.Store
	logger     *slog.Logger
}

// New creates the invoke handler. store may be nil.
func New(dispatcher Dispatcher, store *state.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: dispatcher, store: store, logger: logger}
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, r, http.StatusMethodNotAllowed, "invoke must be POST")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req gateway.InvokeRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Command == "" {
		respondError(w, r, http.StatusBadRequest, "request must be a JSON object with a command")
		return
	}

	out, err := h.dispatcher.Dispatch(r.Context(), req.Command, req.Args)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, backend.ErrUnknownCommand) || errors.Is(err, backend.ErrInvalidArguments) {
			status = http.StatusBadRequest
		}
		respondError(w, r, status, err.Error())
		return
	}

	h.track(req, out)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// track keeps the session store in step with successful mutations.
func (h *Handler) track(req gateway.InvokeRequest, envelope json.RawMessage) {
	if h.store == nil {
		return
	}
	var reply struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(envelope, &reply); err != nil || !reply.Success {
		return
	}

	switch {
	case keyListCommands[req.Command]:
		h.store.RefreshKeyList()
	case keyContentCommands[req.Command]:
		h.store.Notify()
	case req.Command == backend.CmdSelectDb:
		var args backend.DbArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return
		}
		if active, ok := h.store.ActiveProfile(); ok && active.ID == args.ConnectionID {
			if err := h.store.SetDatabaseIndex(args.DbIndex); err != nil {
				h.logger.Warn("invoke: database index not tracked", "error", err)
			}
		}
	}
}

// respondError writes an error envelope with a non-200 status.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	api.Respond(w, r, api.Error(message))
}
