package storage_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dracory/weeredis/shared/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open("sqlite", ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := newStore(t)

	t.Run("missing key", func(t *testing.T) {
		v, ok := s.Get("nope")
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("structured value round trips as JSON", func(t *testing.T) {
		require.True(t, s.Set("obj", map[string]any{"a": 1, "b": []string{"x"}}))

		v, ok := s.Get("obj")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"a": float64(1), "b": []any{"x"}}, v)
	})

	t.Run("plain string is stored verbatim and read back raw", func(t *testing.T) {
		require.True(t, s.Set("greeting", "hello world"))

		raw, ok, err := s.GetString("greeting")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "hello world", raw)

		v, ok := s.Get("greeting")
		require.True(t, ok)
		assert.Equal(t, "hello world", v)
	})

	t.Run("JSON text stored as a string is parsed on read", func(t *testing.T) {
		require.True(t, s.Set("num", "42"))
		v, ok := s.Get("num")
		require.True(t, ok)
		assert.Equal(t, float64(42), v)
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		require.True(t, s.Set("k", 1))
		require.True(t, s.Set("k", 2))
		v, _ := s.Get("k")
		assert.Equal(t, float64(2), v)
	})

	t.Run("unserializable value reports false", func(t *testing.T) {
		assert.False(t, s.Set("bad", make(chan int)))
		_, ok := s.Get("bad")
		assert.False(t, ok)
	})
}

func TestStore_DeleteClearKeys(t *testing.T) {
	s := newStore(t)
	require.True(t, s.Set("b", "2"))
	require.True(t, s.Set("a", "1"))

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, []any{float64(1), float64(2)}, s.Values())

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, []string{"b"}, s.Keys())

	assert.True(t, s.Clear())
	assert.Empty(t, s.Keys())
}

type settings struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func TestDocument(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		doc := storage.NewDocument[settings](newStore(t), "settings", 1)
		assert.Equal(t, "settings", doc.Key())
		_, err := doc.Load()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		doc := storage.NewDocument[settings](s, "settings", 1)
		require.True(t, doc.Save(settings{Theme: "dark", Size: 3}))

		raw, _, err := s.GetString("settings")
		require.NoError(t, err)
		assert.JSONEq(t, `{"version":1,"data":{"theme":"dark","size":3}}`, raw)

		got, err := doc.Load()
		require.NoError(t, err)
		assert.Equal(t, settings{Theme: "dark", Size: 3}, got)
	})

	t.Run("newer version is rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetString("settings", `{"version":7,"data":{}}`))

		_, err := storage.NewDocument[settings](s, "settings", 1).Load()
		assert.ErrorIs(t, err, storage.ErrSchemaVersion)
	})

	t.Run("unversioned value needs a migration", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetString("settings", `{"theme":"light"}`))

		_, err := storage.NewDocument[settings](s, "settings", 1).Load()
		assert.ErrorIs(t, err, storage.ErrSchemaVersion)

		got, err := storage.NewDocument[settings](s, "settings", 1).
			WithMigration(0, func(data json.RawMessage) (json.RawMessage, error) { return data, nil }).
			Load()
		require.NoError(t, err)
		assert.Equal(t, "light", got.Theme)
	})

	t.Run("migration chain", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetString("settings", `{"version":1,"data":{"theme":"x"}}`))

		got, err := storage.NewDocument[settings](s, "settings", 2).
			WithMigration(1, func(data json.RawMessage) (json.RawMessage, error) {
				var m map[string]any
				if err := json.Unmarshal(data, &m); err != nil {
					return nil, err
				}
				m["size"] = 10
				return json.Marshal(m)
			}).
			Load()
		require.NoError(t, err)
		assert.Equal(t, settings{Theme: "x", Size: 10}, got)
	})

	t.Run("failing migration surfaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetString("settings", `{"version":0,"data":{}}`))
		boom := errors.New("boom")

		_, err := storage.NewDocument[settings](s, "settings", 1).
			WithMigration(0, func(json.RawMessage) (json.RawMessage, error) { return nil, boom }).
			Load()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("garbage is a decode error, never raw text", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetString("settings", `not json`))

		_, err := storage.NewDocument[settings](s, "settings", 1).Load()
		require.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrNotFound)
	})
}
