package state

import (
	"encoding/json"
	"errors"

	"github.com/dracory/weeredis/shared/storage"
	"github.com/dracory/weeredis/shared/types"
)

// StorageKey is the storage key of the persisted snapshot.
const StorageKey = "redis-connections"

// SnapshotVersion is the schema version written by this build.
const SnapshotVersion = 1

// Snapshot is the persisted part of the store.
type Snapshot struct {
	Connections        []types.ConnectionProfile `json:"connections"`
	ActiveConnectionID *string                   `json:"activeConnectionId"`
	CurrentDbIndex     int                       `json:"currentDbIndex"`
}

// NewSnapshotDocument binds the snapshot to its storage key. Unversioned
// snapshots share the version 1 layout and are read as-is.
func NewSnapshotDocument(persist *storage.Store) *storage.Document[Snapshot] {
	return storage.NewDocument[Snapshot](persist, StorageKey, SnapshotVersion).
		WithMigration(0, func(data json.RawMessage) (json.RawMessage, error) { return data, nil })
}

// persistLocked writes the snapshot; callers hold the lock.
func (s *Store) persistLocked() bool {
	if s.doc == nil {
		return true
	}

	snap := Snapshot{
		Connections:    cloneProfiles(s.profiles),
		CurrentDbIndex: s.dbIndex,
	}
	if s.activeID != "" {
		id := s.activeID
		snap.ActiveConnectionID = &id
	}
	if s.sealer != nil {
		for i := range snap.Connections {
			sealed, err := s.sealer.Seal(snap.Connections[i].Password)
			if err != nil {
				s.logger.Error("state: sealing password failed, saving profile without it", "id", snap.Connections[i].ID, "error", err)
				sealed = ""
			}
			snap.Connections[i].Password = sealed
		}
	}

	if !s.doc.Save(snap) {
		s.logger.Error("state: snapshot not persisted", "key", s.doc.Key())
		return false
	}
	return true
}

// hydrate loads the persisted snapshot into an empty store.
func (s *Store) hydrate() {
	snap, err := s.doc.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("state: failed to load snapshot, starting empty", "key", s.doc.Key(), "error", err)
		return
	}

	profiles := make([]types.ConnectionProfile, 0, len(snap.Connections))
	for _, p := range snap.Connections {
		if p.Separator == "" {
			p.Separator = DefaultSeparator
		}
		if s.sealer != nil {
			plain, err := s.sealer.Open(p.Password)
			if err != nil {
				s.logger.Warn("state: stored password could not be opened, clearing it", "id", p.ID, "error", err)
				plain = ""
			}
			p.Password = plain
		}
		profiles = append(profiles, p)
	}

	s.profiles = profiles
	s.dbIndex = snap.CurrentDbIndex
	if snap.ActiveConnectionID != nil {
		s.activeID = *snap.ActiveConnectionID
	}
	if _, _, ok := s.find(s.activeID); s.activeID != "" && !ok {
		s.logger.Warn("state: dropping dangling active profile", "id", s.activeID)
		s.activeID = ""
	}
}
