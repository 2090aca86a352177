// Package state is the connection/session store shared by every view.
//
// A Store holds the saved connection profiles, the active profile, the
// selected logical database and the currently selected key. It is created
// once by the application and handed to its consumers. Every mutation that
// changes the persisted snapshot writes it synchronously before returning.
package state

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dracory/weeredis/shared/secret"
	"github.com/dracory/weeredis/shared/storage"
	"github.com/dracory/weeredis/shared/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultSeparator splits key names into namespaces when a profile sets none.
const DefaultSeparator = ":"

var (
	// ErrProfileNotFound is returned when an id matches no saved profile.
	ErrProfileNotFound = errors.New("state: profile not found")
	// ErrInvalidDatabaseIndex is returned for negative database indexes.
	ErrInvalidDatabaseIndex = errors.New("state: invalid database index")
)

// ProfileInput holds the fields of a new profile.
type ProfileInput struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	DB        *int   `json:"db,omitempty"`
	Separator string `json:"separator,omitempty"`
}

// ProfilePatch holds the fields to change on an existing profile. Nil fields are kept.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Host      *string `json:"host,omitempty"`
	Port      *int    `json:"port,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	DB        *int    `json:"db,omitempty"`
	ClearDB   bool    `json:"clear_db,omitempty"`
	Separator *string `json:"separator,omitempty"`
}

// View is a point-in-time copy of the store.
type View struct {
	Profiles        []types.ConnectionProfile `json:"connections"`
	ActiveID        string                    `json:"active_connection_id"`
	DatabaseIndex   int                       `json:"current_db_index"`
	Revision        uint64                    `json:"revision"`
	KeyListRevision uint64                    `json:"key_list_revision"`
	CurrentKey      *string                   `json:"current_key"`
	CurrentKeyCount int64                     `json:"current_key_count"`
}

// Store is the connection/session state container.
type Store struct {
	mu sync.Mutex

	profiles        []types.ConnectionProfile
	activeID        string
	dbIndex         int
	revision        uint64
	keyListRevision uint64
	currentKey      *string
	currentKeyCount int64

	doc    *storage.Document[Snapshot]
	sealer *secret.Sealer
	logger *slog.Logger
	newID  func() string

	listeners      map[int]func(Event)
	nextListenerID int
}

// Option configures a Store.
type Option func(*Store)

// WithSealer encrypts profile passwords in the persisted snapshot.
func WithSealer(s *secret.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

// WithLogger sets the logger used for warnings and persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithIDGenerator replaces the profile id generator.
func WithIDGenerator(fn func() string) Option {
	return func(st *Store) { st.newID = fn }
}

// New creates a Store persisted in persist and hydrates it from the saved
// snapshot. A nil persist keeps the state in memory only.
func New(persist *storage.Store, options ...Option) *Store {
	s := &Store{
		logger:    slog.Default(),
		newID:     uuid.NewString,
		listeners: map[int]func(Event){},
	}
	for _, option := range options {
		option(s)
	}
	if persist != nil {
		s.doc = NewSnapshotDocument(persist)
		s.hydrate()
	}
	return s
}

// Profiles returns a copy of the saved profiles in order.
func (s *Store) Profiles() []types.ConnectionProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfiles(s.profiles)
}

// Profile returns the profile with the given id.
func (s *Store) Profile(id string) (types.ConnectionProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _, ok := s.find(id)
	return p, ok
}

// ActiveProfile returns the active profile, if any.
func (s *Store) ActiveProfile() (types.ConnectionProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return types.ConnectionProfile{}, false
	}
	p, _, ok := s.find(s.activeID)
	return p, ok
}

// ProfileCount returns the number of saved profiles.
func (s *Store) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// View returns a copy of the whole state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Profiles:        cloneProfiles(s.profiles),
		ActiveID:        s.activeID,
		DatabaseIndex:   s.dbIndex,
		Revision:        s.revision,
		KeyListRevision: s.keyListRevision,
		CurrentKeyCount: s.currentKeyCount,
	}
	if s.currentKey != nil {
		k := *s.currentKey
		v.CurrentKey = &k
	}
	return v
}

// CreateProfile saves a new profile under a fresh id and makes it active.
func (s *Store) CreateProfile(in ProfileInput) types.ConnectionProfile {
	s.mu.Lock()
	p := types.ConnectionProfile{
		ID:        s.uniqueID(),
		Name:      in.Name,
		Host:      in.Host,
		Port:      in.Port,
		Username:  in.Username,
		Password:  in.Password,
		DB:        cloneInt(in.DB),
		Separator: lo.Ternary(in.Separator == "", DefaultSeparator, in.Separator),
	}
	s.profiles = append(s.profiles, p)
	s.revision++
	s.activate(p.ID)
	events := []Event{{Kind: EventState, Revision: s.revision}}
	s.persistLocked()
	s.unlockAndEmit(events)
	return p
}

// UpdateProfile merges patch into the profile with the given id. It reports
// false and changes nothing when no such profile exists.
func (s *Store) UpdateProfile(id string, patch ProfilePatch) bool {
	s.mu.Lock()
	_, i, ok := s.find(id)
	if !ok {
		s.mu.Unlock()
		return false
	}

	p := &s.profiles[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Host != nil {
		p.Host = *patch.Host
	}
	if patch.Port != nil {
		p.Port = *patch.Port
	}
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.Password != nil {
		p.Password = *patch.Password
	}
	if patch.ClearDB {
		p.DB = nil
	} else if patch.DB != nil {
		p.DB = cloneInt(patch.DB)
	}
	switch {
	case patch.Separator != nil && *patch.Separator != "":
		p.Separator = *patch.Separator
	case p.Separator == "":
		p.Separator = DefaultSeparator
	}

	s.revision++
	events := []Event{{Kind: EventState, Revision: s.revision}}
	s.persistLocked()
	s.unlockAndEmit(events)
	return true
}

// DeleteProfile removes the profile with the given id. Removing the active
// profile clears the selection and resets the database index to 0.
func (s *Store) DeleteProfile(id string) bool {
	s.mu.Lock()
	_, i, ok := s.find(id)
	if !ok {
		s.mu.Unlock()
		return false
	}

	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		s.dbIndex = 0
		s.resetKeyStateLocked()
	}
	s.revision++
	events := []Event{{Kind: EventState, Revision: s.revision}}
	s.persistLocked()
	s.unlockAndEmit(events)
	return true
}

// SetActiveProfile selects the profile with the given id, or none for "".
// The database index becomes the profile's default database or 0.
func (s *Store) SetActiveProfile(id string) error {
	s.mu.Lock()
	if id != "" {
		if _, _, ok := s.find(id); !ok {
			s.mu.Unlock()
			s.logger.Warn("state: cannot activate unknown profile", "id", id)
			return ErrProfileNotFound
		}
	}
	s.activate(id)
	events := []Event{{Kind: EventState, Revision: s.revision}}
	s.persistLocked()
	s.unlockAndEmit(events)
	return nil
}

// SetDatabaseIndex selects a logical database. The upper bound depends on the
// server and is checked by callers that know the database count.
func (s *Store) SetDatabaseIndex(index int) error {
	if index < 0 {
		return ErrInvalidDatabaseIndex
	}
	s.mu.Lock()
	s.dbIndex = index
	s.resetKeyStateLocked()
	s.revision++
	events := []Event{{Kind: EventState, Revision: s.revision}}
	s.persistLocked()
	s.unlockAndEmit(events)
	return nil
}

// DatabaseIndex returns the selected logical database.
func (s *Store) DatabaseIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbIndex
}

// Notify bumps the general revision so dependent views re-query.
func (s *Store) Notify() {
	s.mu.Lock()
	s.revision++
	s.unlockAndEmit([]Event{{Kind: EventState, Revision: s.revision}})
}

// RefreshKeyList bumps the key-list revision only.
func (s *Store) RefreshKeyList() {
	s.mu.Lock()
	s.keyListRevision++
	s.unlockAndEmit([]Event{{Kind: EventKeyList, Revision: s.keyListRevision}})
}

// SetCurrentKey selects the key shown in the detail view.
func (s *Store) SetCurrentKey(key string) {
	s.mu.Lock()
	s.currentKey = &key
	s.unlockAndEmit([]Event{{Kind: EventKeySelection, Revision: s.revision}})
}

// ClearCurrentKey deselects the current key.
func (s *Store) ClearCurrentKey() {
	s.mu.Lock()
	s.currentKey = nil
	s.unlockAndEmit([]Event{{Kind: EventKeySelection, Revision: s.revision}})
}

// SetCurrentKeyCount records the reported size of the current key.
func (s *Store) SetCurrentKeyCount(n int64) {
	s.mu.Lock()
	s.currentKeyCount = n
	s.unlockAndEmit([]Event{{Kind: EventKeySelection, Revision: s.revision}})
}

// ResetKeyState clears the current key and its count.
func (s *Store) ResetKeyState() {
	s.mu.Lock()
	s.resetKeyStateLocked()
	s.unlockAndEmit([]Event{{Kind: EventKeySelection, Revision: s.revision}})
}

// activate sets the active id and its database; callers hold the lock.
func (s *Store) activate(id string) {
	s.activeID = id
	s.dbIndex = 0
	if p, _, ok := s.find(id); ok {
		s.dbIndex = p.DefaultDB()
	}
	s.resetKeyStateLocked()
	s.revision++
}

func (s *Store) resetKeyStateLocked() {
	s.currentKey = nil
	s.currentKeyCount = 0
}

func (s *Store) find(id string) (types.ConnectionProfile, int, bool) {
	if id == "" {
		return types.ConnectionProfile{}, -1, false
	}
	return lo.FindIndexOf(s.profiles, func(p types.ConnectionProfile) bool { return p.ID == id })
}

// uniqueID draws ids until one is unused.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if _, _, taken := s.find(id); !taken && id != "" {
			return id
		}
	}
}

func cloneProfiles(in []types.ConnectionProfile) []types.ConnectionProfile {
	out := make([]types.ConnectionProfile, len(in))
	for i, p := range in {
		p.DB = cloneInt(p.DB)
		out[i] = p
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
