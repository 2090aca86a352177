// Package weeredis provides a lightweight Redis administration module for Go
// web applications. Saved connection profiles and the selected connection are
// kept by the server; every Redis operation goes through one command endpoint.
package weeredis

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dracory/api"
	"github.com/dracory/weeredis/api/api_csrf"
	"github.com/dracory/weeredis/api/api_database_select"
	"github.com/dracory/weeredis/api/api_invoke"
	"github.com/dracory/weeredis/api/api_key_select"
	"github.com/dracory/weeredis/api/api_profile_activate"
	"github.com/dracory/weeredis/api/api_profile_delete"
	"github.com/dracory/weeredis/api/api_profile_save"
	"github.com/dracory/weeredis/api/api_profiles_list"
	"github.com/dracory/weeredis/api/api_state"
	"github.com/dracory/weeredis/api/api_state_events"
	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/pages/page_data"
	"github.com/dracory/weeredis/pages/page_stats"
	"github.com/dracory/weeredis/shared/constants"
	"github.com/dracory/weeredis/shared/secret"
	"github.com/dracory/weeredis/shared/session"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/storage"
	"github.com/dracory/weeredis/shared/types"
	"github.com/gorilla/mux"
)

// App represents the main application instance
type App struct {
	config types.Config
	logger *slog.Logger

	persist    *storage.Store
	store      *state.Store
	sessions   *session.Manager
	registry   *backend.Registry
	dispatcher *backend.Dispatcher
	invoker    gateway.Invoker
}

// Option customizes App construction.
type Option func(*App)

// WithLogger sets the logger used by the App and everything it builds.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithStorage uses an already opened persistence store instead of opening
// one from the configured driver and DSN.
func WithStorage(s *storage.Store) Option {
	return func(a *App) { a.persist = s }
}

// New creates a new App instance with the given configuration
// The configuration should be loaded using LoadConfig() from config.go
func New(cfg types.Config, options ...Option) (*App, error) {
	if cfg.ActionParam == "" {
		cfg.ActionParam = DefaultActionParam
	}
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = backend.DefaultScanBatchSize
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = backend.DefaultDialTimeout
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}

	a := &App{config: cfg, logger: slog.Default()}
	for _, option := range options {
		option(a)
	}

	if a.persist == nil {
		persist, err := storage.Open(cfg.StorageDriver, cfg.StorageDSN, a.logger)
		if err != nil {
			return nil, err
		}
		a.persist = persist
	}

	sealer, err := secret.NewSealer(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}

	a.store = state.New(a.persist, state.WithLogger(a.logger), state.WithSealer(sealer))
	a.sessions = session.NewManager(cfg.SessionSecret, cfg.SecureCookies)
	a.registry = backend.NewRegistry(cfg.DialTimeout, a.logger)
	a.dispatcher = backend.NewDispatcher(backend.New(a.registry,
		backend.WithLogger(a.logger),
		backend.WithScanBatchSize(cfg.ScanBatchSize),
	))
	a.invoker = gateway.NewLocal(a.dispatcher)

	return a, nil
}

// Store returns the session store.
func (a *App) Store() *state.Store { return a.store }

// Invoker returns the in-process command invoker.
func (a *App) Invoker() gateway.Invoker { return a.invoker }

// Restore reconnects the active profile loaded from persistence. A failure is
// logged and leaves the profile selected so the user can retry.
func (a *App) Restore(ctx context.Context) {
	profile, ok := a.store.ActiveProfile()
	if !ok {
		return
	}
	res, err := gateway.ConnectRedis(ctx, a.invoker, profile)
	switch {
	case err != nil:
		a.logger.Error("restore: connect failed", "profile", profile.ID, "error", err)
		return
	case !res.IsOk():
		a.logger.Warn("restore: connect failed", "profile", profile.ID, "message", res.Message())
		return
	}
	if db := a.store.DatabaseIndex(); db != profile.DefaultDB() {
		if sel, err := gateway.SelectDb(ctx, a.invoker, profile.ID, db); err != nil || !sel.IsOk() {
			a.logger.Warn("restore: select db failed", "profile", profile.ID, "db", db)
		}
	}
}

// RunMaintenance prunes idle browser sessions every interval until ctx ends.
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Prune(); n > 0 {
				a.logger.Debug("sessions pruned", "count", n)
			}
		}
	}
}

// Close releases Redis connections and the persistence store.
func (a *App) Close() error {
	a.registry.Close()
	return a.persist.Close()
}

// Handler returns an http.Handler that serves the App UI and API
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc(constants.PathRoot, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, constants.PathData, http.StatusFound)
	}).Methods(http.MethodGet)
	router.Handle(constants.PathData, page_data.New(a.config, a.store, a.sessions)).Methods(http.MethodGet)
	router.Handle(constants.PathStats, page_stats.New(a.config, a.store, a.invoker)).Methods(http.MethodGet)
	router.HandleFunc(constants.PathHealthz, a.healthz).Methods(http.MethodGet)

	// Register API handlers
	router.HandleFunc(a.config.BasePath, a.handleRequest)

	return RequestLogger(a.logger, SecurityHeaders(router))
}

// handleRequest routes requests to the appropriate handler
func (a *App) handleRequest(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get(a.config.ActionParam)

	if r.Method == http.MethodPost && !a.sessions.VerifyCSRF(r) {
		a.logger.Warn("csrf check failed", "request_id", GetRequestID(r.Context()), "action", action)
		respondError(w, r, http.StatusForbidden, "invalid CSRF token")
		return
	}

	switch action {
	case constants.ActionHealthz:
		a.healthz(w, r)

	case constants.ActionCSRF:
		api_csrf.New(a.sessions).ServeHTTP(w, r)

	case constants.ActionInvoke:
		api_invoke.New(a.dispatcher, a.store, a.logger).ServeHTTP(w, r)

	case constants.ActionState:
		api_state.New(a.store).ServeHTTP(w, r)

	case constants.ActionStateEvents:
		api_state_events.New(a.store).ServeHTTP(w, r)

	case constants.ActionProfilesList:
		api_profiles_list.New(a.store).ServeHTTP(w, r)

	case constants.ActionProfileSave:
		api_profile_save.New(a.store, a.invoker, a.logger).ServeHTTP(w, r)

	case constants.ActionProfileDelete:
		api_profile_delete.New(a.store, a.invoker, a.logger).ServeHTTP(w, r)

	case constants.ActionProfileActivate:
		api_profile_activate.New(a.store, a.invoker).ServeHTTP(w, r)

	case constants.ActionDatabaseSelect:
		api_database_select.New(a.store, a.invoker).ServeHTTP(w, r)

	case constants.ActionKeySelect:
		api_key_select.New(a.store, a.invoker).ServeHTTP(w, r)

	default:
		respondError(w, r, http.StatusNotFound, "unknown action: "+action)
	}
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	api.Respond(w, r, api.SuccessWithData("ok", map[string]any{
		"profiles":    a.store.ProfileCount(),
		"connections": len(a.registry.IDs()),
	}))
}

// respondError writes an error envelope with a non-200 status.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	api.Respond(w, r, api.Error(message))
}
