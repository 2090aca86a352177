package backend

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dracory/weeredis/shared/types"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// DefaultDialTimeout bounds establishing a connection when no timeout is configured.
const DefaultDialTimeout = 5 * time.Second

// MaxDatabases bounds the logical database indexes a connection will open.
const MaxDatabases = 256

var (
	// ErrNotConnected is returned for connection ids that are not registered.
	ErrNotConnected = errors.New("redis not connected")
	// ErrDatabaseRange is returned for indexes outside 0..MaxDatabases-1.
	ErrDatabaseRange = errors.New("database index out of range")
)

// conn is one registered server. It keeps a client per logical database so
// switching databases never mutates a shared connection.
type conn struct {
	profile types.ConnectionProfile
	options redis.Options

	mu      sync.Mutex
	db      int
	closed  bool
	clients map[int]*redis.Client
}

// client returns the client bound to db, creating it on first use. A closed
// conn never hands out clients.
func (c *conn) client(db int) (*redis.Client, error) {
	if db < 0 || db >= MaxDatabases {
		return nil, ErrDatabaseRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrNotConnected
	}
	if cl, ok := c.clients[db]; ok {
		return cl, nil
	}
	opts := c.options
	opts.DB = db
	cl := redis.NewClient(&opts)
	c.clients[db] = cl
	return cl, nil
}

// current returns the client of the selected database.
func (c *conn) current() (*redis.Client, error) {
	return c.client(c.currentDB())
}

func (c *conn) clientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *conn) currentDB() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

func (c *conn) setDB(db int) {
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
}

func (c *conn) close() error {
	c.mu.Lock()
	clients := lo.Values(c.clients)
	c.clients = map[int]*redis.Client{}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, cl := range clients {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// Registry maps connection ids to live server connections.
type Registry struct {
	dialTimeout time.Duration
	logger      *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
}

// NewRegistry creates an empty Registry.
func NewRegistry(dialTimeout time.Duration, logger *slog.Logger) *Registry {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dialTimeout: dialTimeout,
		logger:      logger,
		conns:       map[string]*conn{},
	}
}

// Connect pings the server described by profile on its default database and
// registers it under the profile id, replacing any previous connection.
func (r *Registry) Connect(ctx context.Context, profile types.ConnectionProfile) error {
	c := &conn{
		profile: profile,
		options: redis.Options{
			Addr:        net.JoinHostPort(profile.Host, strconv.Itoa(profile.Port)),
			Username:    profile.Username,
			Password:    profile.Password,
			DialTimeout: r.dialTimeout,
			PoolSize:    4,
			MaxRetries:  -1,
		},
		db:      profile.DefaultDB(),
		clients: map[int]*redis.Client{},
	}

	cl, err := c.current()
	if err != nil {
		return err
	}
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = c.close()
		return err
	}

	r.mu.Lock()
	old := r.conns[profile.ID]
	r.conns[profile.ID] = c
	r.mu.Unlock()

	if old != nil {
		if err := old.close(); err != nil {
			r.logger.Warn("backend: closing replaced connection", "id", profile.ID, "error", err)
		}
	}
	return nil
}

// Disconnect closes and removes a connection. It reports false when the id is unknown.
func (r *Registry) Disconnect(id string) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	if err := c.close(); err != nil {
		r.logger.Warn("backend: closing connection", "id", id, "error", err)
	}
	return true
}

func (r *Registry) get(id string) (*conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, ErrNotConnected
	}
	return c, nil
}

// IDs returns the registered connection ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.conns)
}

// Close disconnects everything.
func (r *Registry) Close() {
	for _, id := range r.IDs() {
		r.Disconnect(id)
	}
}
