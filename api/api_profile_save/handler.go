package api_profile_save

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/types"
)

// DefaultPort is used when the form leaves the port empty.
const DefaultPort = 6379

// Handler creates a profile, or updates one when the form carries an id.
// A new profile becomes active and is connected right away; updating the
// active profile reconnects it.
type Handler struct {
	store   *state.Store
	invoker gateway.Invoker
	logger  *slog.Logger
}

// New creates a new profile save handler
func New(store *state.Store, invoker gateway.Invoker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, invoker: invoker, logger: logger}
}

type form struct {
	id        string
	name      string
	host      string
	port      int
	username  string
	password  string
	keepPass  bool
	db        *int
	separator string
}

// ServeHTTP handles the HTTP request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.Respond(w, r, api.Error("profile_save must be POST"))
		return
	}

	if err := r.ParseForm(); err != nil {
		api.Respond(w, r, api.Error("failed to parse form"))
		return
	}

	f, err := parseForm(r)
	if err != nil {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}

	var profile types.ConnectionProfile
	message := "profile saved"
	if f.id == "" {
		profile = h.store.CreateProfile(state.ProfileInput{
			Name:      f.name,
			Host:      f.host,
			Port:      f.port,
			Username:  f.username,
			Password:  f.password,
			DB:        f.db,
			Separator: f.separator,
		})
		message = "profile created"
	} else {
		patch := state.ProfilePatch{
			Name:     &f.name,
			Host:     &f.host,
			Port:     &f.port,
			Username: &f.username,
			DB:       f.db,
			ClearDB:  f.db == nil,
		}
		if !f.keepPass {
			patch.Password = &f.password
		}
		if f.separator != "" {
			patch.Separator = &f.separator
		}
		if !h.store.UpdateProfile(f.id, patch) {
			api.Respond(w, r, api.Error("profile not found"))
			return
		}
		profile, _ = h.store.Profile(f.id)
	}

	data := map[string]any{
		"id":        profile.ID,
		"connected": false,
	}

	if active, ok := h.store.ActiveProfile(); ok && active.ID == profile.ID {
		res, err := gateway.ConnectRedis(r.Context(), h.invoker, profile)
		switch {
		case err != nil:
			h.logger.Error("profile_save: connect failed", "profile", profile.ID, "error", err)
			data["connect_message"] = err.Error()
		default:
			data["connected"] = res.IsOk()
			data["connect_message"] = res.Message()
			if res.IsOk() {
				h.reselect(r, profile)
			}
		}
	}

	api.Respond(w, r, api.SuccessWithData(message, data))
}

// reselect points a fresh connection at the database the store has
// selected. When that fails the store falls back to the profile default,
// which is what the connection now uses.
func (h *Handler) reselect(r *http.Request, profile types.ConnectionProfile) {
	db := h.store.DatabaseIndex()
	if db == profile.DefaultDB() {
		return
	}
	sel, err := gateway.SelectDb(r.Context(), h.invoker, profile.ID, db)
	if err == nil && sel.IsOk() {
		return
	}
	h.logger.Warn("profile_save: reselect db failed", "profile", profile.ID, "db", db)
	if err := h.store.SetDatabaseIndex(profile.DefaultDB()); err != nil {
		h.logger.Error("profile_save: reset db index failed", "profile", profile.ID, "error", err)
	}
}

func parseForm(r *http.Request) (form, error) {
	f := form{
		id:        strings.TrimSpace(r.Form.Get("id")),
		name:      strings.TrimSpace(r.Form.Get("name")),
		host:      strings.TrimSpace(r.Form.Get("host")),
		username:  strings.TrimSpace(r.Form.Get("username")),
		password:  r.Form.Get("password"),
		separator: r.Form.Get("separator"),
		port:      DefaultPort,
	}
	// An empty password on edit keeps the stored one; the browser never sees it.
	f.keepPass = f.id != "" && f.password == "" && r.Form.Get("clear_password") == ""

	if f.name == "" || f.host == "" {
		return f, errors.New("name and host are required")
	}

	if v := strings.TrimSpace(r.Form.Get("port")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return f, errors.New("port must be between 1 and 65535")
		}
		f.port = port
	}

	if v := strings.TrimSpace(r.Form.Get("db")); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return f, errors.New("db must be a non-negative integer")
		}
		f.db = &db
	}

	return f, nil
}
