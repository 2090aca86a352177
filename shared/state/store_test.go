package state_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/dracory/weeredis/shared/secret"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newPersist(t *testing.T) *storage.Store {
	t.Helper()
	p, err := storage.Open("sqlite", ":memory:", quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestCreateProfile(t *testing.T) {
	s := state.New(newPersist(t), state.WithLogger(quiet))

	a := s.CreateProfile(state.ProfileInput{Name: "local", Host: "127.0.0.1", Port: 6379})
	b := s.CreateProfile(state.ProfileInput{Name: "cache", Host: "10.0.0.2", Port: 6380, Separator: "/"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, ":", a.Separator)
	assert.Equal(t, "/", b.Separator)
	assert.Equal(t, 2, s.ProfileCount())

	active, ok := s.ActiveProfile()
	require.True(t, ok)
	assert.Equal(t, b.ID, active.ID)
}

func TestCreateProfileSkipsTakenIDs(t *testing.T) {
	ids := []string{"dup", "dup", "", "fresh"}
	next := 0
	s := state.New(nil, state.WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first := s.CreateProfile(state.ProfileInput{Name: "one"})
	second := s.CreateProfile(state.ProfileInput{Name: "two"})

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestUpdateProfile(t *testing.T) {
	s := state.New(nil)
	p := s.CreateProfile(state.ProfileInput{Name: "local", Host: "h", Port: 1, Separator: "|"})

	t.Run("missing id is a no-op", func(t *testing.T) {
		before := s.View()
		assert.False(t, s.UpdateProfile("missing", state.ProfilePatch{Name: strPtr("x")}))
		after := s.View()
		assert.Equal(t, before.Profiles, after.Profiles)
		assert.Equal(t, before.Revision, after.Revision)
	})

	t.Run("merges supplied fields and keeps separator", func(t *testing.T) {
		rev := s.View().Revision
		require.True(t, s.UpdateProfile(p.ID, state.ProfilePatch{Name: strPtr("renamed"), DB: intPtr(4)}))

		got, ok := s.Profile(p.ID)
		require.True(t, ok)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, "h", got.Host)
		assert.Equal(t, 4, got.DefaultDB())
		assert.Equal(t, "|", got.Separator)
		assert.Equal(t, rev+1, s.View().Revision)
	})

	t.Run("clear db and replace separator", func(t *testing.T) {
		require.True(t, s.UpdateProfile(p.ID, state.ProfilePatch{ClearDB: true, Separator: strPtr("::")}))
		got, _ := s.Profile(p.ID)
		assert.Nil(t, got.DB)
		assert.Equal(t, "::", got.Separator)
	})
}

func TestDeleteProfile(t *testing.T) {
	t.Run("deleting the active profile resets selection", func(t *testing.T) {
		s := state.New(nil)
		p := s.CreateProfile(state.ProfileInput{Name: "a", DB: intPtr(5)})
		s.SetCurrentKey("user:1")
		require.Equal(t, 5, s.DatabaseIndex())

		assert.True(t, s.DeleteProfile(p.ID))

		v := s.View()
		assert.Empty(t, v.ActiveID)
		assert.Equal(t, 0, v.DatabaseIndex)
		assert.Nil(t, v.CurrentKey)
		assert.Empty(t, v.Profiles)
	})

	t.Run("deleting another profile keeps the active one", func(t *testing.T) {
		s := state.New(nil)
		a := s.CreateProfile(state.ProfileInput{Name: "a"})
		b := s.CreateProfile(state.ProfileInput{Name: "b", DB: intPtr(2)})

		assert.True(t, s.DeleteProfile(a.ID))

		v := s.View()
		assert.Equal(t, b.ID, v.ActiveID)
		assert.Equal(t, 2, v.DatabaseIndex)
		assert.Len(t, v.Profiles, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := state.New(nil)
		assert.False(t, s.DeleteProfile("nope"))
	})
}

func TestSetActiveProfile(t *testing.T) {
	s := state.New(nil, state.WithLogger(quiet))
	withDB := s.CreateProfile(state.ProfileInput{Name: "a", DB: intPtr(3)})
	noDB := s.CreateProfile(state.ProfileInput{Name: "b"})

	t.Run("unknown id leaves state unchanged", func(t *testing.T) {
		s.SetCurrentKey("k")
		before := s.View()

		err := s.SetActiveProfile("missing")

		assert.ErrorIs(t, err, state.ErrProfileNotFound)
		assert.Equal(t, before, s.View())
	})

	t.Run("database index follows the profile default", func(t *testing.T) {
		require.NoError(t, s.SetActiveProfile(withDB.ID))
		assert.Equal(t, 3, s.DatabaseIndex())
		assert.Nil(t, s.View().CurrentKey)

		require.NoError(t, s.SetActiveProfile(noDB.ID))
		assert.Equal(t, 0, s.DatabaseIndex())
	})

	t.Run("empty id clears the selection", func(t *testing.T) {
		require.NoError(t, s.SetActiveProfile(withDB.ID))
		require.NoError(t, s.SetActiveProfile(""))
		_, ok := s.ActiveProfile()
		assert.False(t, ok)
		assert.Equal(t, 0, s.DatabaseIndex())
	})
}

func TestSetDatabaseIndex(t *testing.T) {
	s := state.New(nil)
	s.SetCurrentKey("k")
	s.SetCurrentKeyCount(12)
	rev := s.View().Revision

	require.NoError(t, s.SetDatabaseIndex(7))

	v := s.View()
	assert.Equal(t, 7, v.DatabaseIndex)
	assert.Equal(t, rev+1, v.Revision)
	assert.Nil(t, v.CurrentKey)
	assert.Zero(t, v.CurrentKeyCount)

	assert.ErrorIs(t, s.SetDatabaseIndex(-1), state.ErrInvalidDatabaseIndex)
	assert.Equal(t, 7, s.DatabaseIndex())
}

func TestCountersAndKeyState(t *testing.T) {
	s := state.New(nil)
	start := s.View()

	s.Notify()
	s.RefreshKeyList()
	s.RefreshKeyList()

	v := s.View()
	assert.Equal(t, start.Revision+1, v.Revision)
	assert.Equal(t, start.KeyListRevision+2, v.KeyListRevision)

	s.SetCurrentKey("session:abc")
	s.SetCurrentKeyCount(9)
	v = s.View()
	require.NotNil(t, v.CurrentKey)
	assert.Equal(t, "session:abc", *v.CurrentKey)
	assert.EqualValues(t, 9, v.CurrentKeyCount)

	s.ClearCurrentKey()
	assert.Nil(t, s.View().CurrentKey)

	s.SetCurrentKey("x")
	s.ResetKeyState()
	v = s.View()
	assert.Nil(t, v.CurrentKey)
	assert.Zero(t, v.CurrentKeyCount)
}

func TestSubscribe(t *testing.T) {
	s := state.New(nil)
	var got []state.Event
	cancel := s.Subscribe(func(e state.Event) { got = append(got, e) })

	s.Notify()
	s.RefreshKeyList()
	s.SetCurrentKey("k")

	// listeners may read the store without deadlocking
	s.Subscribe(func(state.Event) { _ = s.View() })
	s.Notify()

	cancel()
	s.Notify()

	require.Len(t, got, 4)
	assert.Equal(t, state.EventState, got[0].Kind)
	assert.Equal(t, state.EventKeyList, got[1].Kind)
	assert.EqualValues(t, 1, got[1].Revision)
	assert.Equal(t, state.EventKeySelection, got[2].Kind)
	assert.Equal(t, "key_list", got[1].Kind.String())
}

func TestPersistenceRoundTrip(t *testing.T) {
	persist := newPersist(t)
	sealer, err := secret.NewSealer("test-secret")
	require.NoError(t, err)

	s := state.New(persist, state.WithSealer(sealer), state.WithLogger(quiet))
	a := s.CreateProfile(state.ProfileInput{Name: "a", Host: "h1", Port: 6379, Password: "hunter2"})
	s.CreateProfile(state.ProfileInput{Name: "b", Host: "h2", Port: 6380, DB: intPtr(2)})
	require.NoError(t, s.SetActiveProfile(a.ID))
	require.NoError(t, s.SetDatabaseIndex(9))

	raw, ok, err := persist.GetString(state.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "hunter2")

	var stored struct {
		Version int `json:"version"`
		Data    struct {
			Connections        []map[string]any `json:"connections"`
			ActiveConnectionID string           `json:"activeConnectionId"`
			CurrentDbIndex     int              `json:"currentDbIndex"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, state.SnapshotVersion, stored.Version)
	assert.Len(t, stored.Data.Connections, 2)
	assert.Equal(t, a.ID, stored.Data.ActiveConnectionID)
	assert.Equal(t, 9, stored.Data.CurrentDbIndex)

	fresh := state.New(persist, state.WithSealer(sealer), state.WithLogger(quiet))
	want, got := s.View(), fresh.View()
	assert.Equal(t, want.Profiles, got.Profiles)
	assert.Equal(t, want.ActiveID, got.ActiveID)
	assert.Equal(t, want.DatabaseIndex, got.DatabaseIndex)
}

func TestHydrateLegacySnapshot(t *testing.T) {
	persist := newPersist(t)
	legacy := `{"connections":[{"id":"x1","name":"old","host":"h","port":6379}],"activeConnectionId":"gone","currentDbIndex":4}`
	require.True(t, persist.Set(state.StorageKey, legacy))

	s := state.New(persist, state.WithLogger(quiet))

	v := s.View()
	require.Len(t, v.Profiles, 1)
	assert.Equal(t, ":", v.Profiles[0].Separator)
	assert.Empty(t, v.ActiveID, "dangling active id is dropped")
	assert.Equal(t, 4, v.DatabaseIndex)
}

func TestHydrateCorruptSnapshotStartsEmpty(t *testing.T) {
	persist := newPersist(t)
	require.True(t, persist.Set(state.StorageKey, fmt.Sprintf(`{"version":%d,"data":[]}`, state.SnapshotVersion+1)))

	s := state.New(persist, state.WithLogger(quiet))
	assert.Zero(t, s.ProfileCount())
}
