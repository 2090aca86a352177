package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dracory/weeredis/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConn = "conn-1"

var (
	quiet     = slog.New(slog.NewTextHandler(io.Discard, nil))
	fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	ctx     context.Context
	mr      *miniredis.Miniredis
	backend *Backend
}

func profileFor(t *testing.T, mr *miniredis.Miniredis, id string) types.ConnectionProfile {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return types.ConnectionProfile{ID: id, Name: "local", Host: mr.Host(), Port: port}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	reg := NewRegistry(time.Second, quiet)
	t.Cleanup(reg.Close)

	f := &fixture{
		ctx: context.Background(),
		mr:  mr,
		backend: New(reg,
			WithLogger(quiet),
			WithScanBatchSize(3),
			WithClock(func() time.Time { return fixedTime }),
		),
	}
	res := f.backend.ConnectRedis(f.ctx, ConnectArgs{Config: profileFor(t, mr, testConn)})
	require.True(t, res.IsOk(), res.Message())
	return f
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewRegistry(time.Second, quiet)
	t.Cleanup(reg.Close)
	b := New(reg, WithLogger(quiet))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res := b.ConnectRedis(ctx, ConnectArgs{Config: profileFor(t, mr, "a")})
		assert.True(t, res.IsOk())
		assert.Equal(t, "connected to local", res.Message())
		assert.Equal(t, []string{"a"}, reg.IDs())
	})

	t.Run("default database is selected", func(t *testing.T) {
		mr.DB(3).Set("only-in-3", "x")
		p := profileFor(t, mr, "b")
		db := 3
		p.DB = &db
		require.True(t, b.ConnectRedis(ctx, ConnectArgs{Config: p}).IsOk())

		v, ok := b.GetKey(ctx, KeyArgs{ConnectionID: "b", Key: "only-in-3"}).Value()
		require.True(t, ok)
		assert.Equal(t, "x", v)
	})

	t.Run("missing id", func(t *testing.T) {
		res := b.ConnectRedis(ctx, ConnectArgs{Config: types.ConnectionProfile{Host: "127.0.0.1", Port: 1}})
		assert.False(t, res.IsOk())
	})

	t.Run("unreachable server", func(t *testing.T) {
		res := b.ConnectRedis(ctx, ConnectArgs{Config: types.ConnectionProfile{ID: "c", Host: "127.0.0.1", Port: 1}})
		assert.False(t, res.IsOk())
		assert.Contains(t, res.Message(), "connection failed")
		assert.NotContains(t, reg.IDs(), "c")
	})

	t.Run("wrong password", func(t *testing.T) {
		secured := miniredis.RunT(t)
		secured.RequireAuth("s3cret")
		p := profileFor(t, secured, "d")
		p.Password = "wrong"
		assert.False(t, b.ConnectRedis(ctx, ConnectArgs{Config: p}).IsOk())

		p.Password = "s3cret"
		assert.True(t, b.ConnectRedis(ctx, ConnectArgs{Config: p}).IsOk())
	})
}

func TestDisconnectRedis(t *testing.T) {
	f := newFixture(t)

	res := f.backend.DisconnectRedis(f.ctx, ConnectionArgs{ConnectionID: testConn})
	assert.True(t, res.IsOk())
	assert.Equal(t, "connection closed", res.Message())

	res = f.backend.DisconnectRedis(f.ctx, ConnectionArgs{ConnectionID: testConn})
	assert.False(t, res.IsOk())
	assert.Equal(t, "connection not found", res.Message())

	keys := f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn})
	assert.False(t, keys.IsOk())
	assert.Equal(t, ErrNotConnected.Error(), keys.Message())
}

func TestDatabases(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("zero", "0")
	f.mr.DB(2).Set("a", "1")
	f.mr.DB(2).Set("b", "2")

	count, ok := f.backend.GetDbCount(f.ctx, ConnectionArgs{ConnectionID: testConn}).Value()
	require.True(t, ok)
	assert.Equal(t, DefaultDatabaseCount, count)

	n, ok := f.backend.GetDbKeyCount(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: 2}).Value()
	require.True(t, ok)
	assert.EqualValues(t, 2, n)

	counts, ok := f.backend.GetAllDbKeyCounts(f.ctx, DbCountArgs{ConnectionID: testConn, DbCount: 3}).Value()
	require.True(t, ok)
	assert.Equal(t, []types.DbKeyCount{{DbIndex: 0, KeyCount: 1}, {DbIndex: 1, KeyCount: 0}, {DbIndex: 2, KeyCount: 2}}, counts)

	// counting other databases leaves the selection alone
	keys, _ := f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn}).Value()
	assert.Equal(t, 1, keys.Total)

	sel := f.backend.SelectDb(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: 2})
	require.True(t, sel.IsOk())
	assert.Equal(t, "switched to database 2", sel.Message())
	keys, _ = f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn}).Value()
	assert.Equal(t, 2, keys.Total)

	assert.False(t, f.backend.SelectDb(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: -1}).IsOk())
	assert.False(t, f.backend.GetDbKeyCount(f.ctx, DbArgs{ConnectionID: "nope"}).IsOk())
}

func TestDatabases_IndexBounds(t *testing.T) {
	f := newFixture(t)
	c, err := f.backend.registry.get(testConn)
	require.NoError(t, err)
	before := c.clientCount()

	res := f.backend.GetAllDbKeyCounts(f.ctx, DbCountArgs{ConnectionID: testConn, DbCount: 2000})
	assert.False(t, res.IsOk())
	assert.Equal(t, "database count must be between 0 and 256", res.Message())
	assert.False(t, f.backend.GetAllDbKeyCounts(f.ctx, DbCountArgs{ConnectionID: testConn, DbCount: -1}).IsOk())

	assert.False(t, f.backend.GetDbKeyCount(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: MaxDatabases}).IsOk())
	sel := f.backend.SelectDb(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: 1 << 20})
	assert.False(t, sel.IsOk())
	assert.Equal(t, "invalid database index 1048576", sel.Message())

	assert.Equal(t, before, c.clientCount())
}

func TestRegistry_ClosedConnHandsOutNoClients(t *testing.T) {
	f := newFixture(t)
	c, err := f.backend.registry.get(testConn)
	require.NoError(t, err)

	require.True(t, f.backend.registry.Disconnect(testConn))

	_, err = c.client(4)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, c.clientCount())
}

func TestGetKeys(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("user:1", "a")
	f.mr.Set("user:2", "b")
	f.mr.HSet("user:3", "name", "c")
	f.mr.Push("queue", "x")
	f.mr.SAdd("tags", "t")
	f.mr.ZAdd("board", 1, "m")

	all, ok := f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn}).Value()
	require.True(t, ok)
	assert.Equal(t, 6, all.Total)
	assert.Len(t, all.Keys, 6)

	users, ok := f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn, Pattern: "user:*"}).Value()
	require.True(t, ok)
	assert.Equal(t, 3, users.Total)
	assert.ElementsMatch(t, []types.KeyInfo{
		{Key: "user:1", Type: types.KeyTypeString},
		{Key: "user:2", Type: types.KeyTypeString},
		{Key: "user:3", Type: types.KeyTypeHash},
	}, users.Keys)

	none, ok := f.backend.GetKeys(f.ctx, PatternArgs{ConnectionID: testConn, Pattern: "missing:*"}).Value()
	require.True(t, ok)
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Keys)
}

func TestGetKey(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("greeting", "hello")

	res := f.backend.GetKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "greeting"})
	v, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, "fetched greeting", res.Message())

	res = f.backend.GetKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "missing"})
	v, ok = res.Value()
	require.True(t, ok)
	assert.Empty(t, v)

	f.mr.Push("list", "x")
	assert.False(t, f.backend.GetKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "list"}).IsOk())
}

func TestGetKeyDetail(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("s", "value")
	f.mr.SetTTL("s", time.Minute)
	f.mr.HSet("h", "b", "2")
	f.mr.HSet("h", "a", "1")
	f.mr.Push("l", "x", "y")
	f.mr.SAdd("set", "q", "p")
	f.mr.ZAdd("z", 2, "two")
	f.mr.ZAdd("z", 1, "one")

	tests := []struct {
		key   string
		typ   string
		ttl   int64
		value any
	}{
		{"s", types.KeyTypeString, 60, "value"},
		{"h", types.KeyTypeHash, -1, []types.HashField{{Field: "a", Value: "1"}, {Field: "b", Value: "2"}}},
		{"l", types.KeyTypeList, -1, []string{"x", "y"}},
		{"set", types.KeyTypeSet, -1, []string{"p", "q"}},
		{"z", types.KeyTypeZSet, -1, []types.ZSetMember{{Value: "one", Score: 1}, {Value: "two", Score: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			d, ok := f.backend.GetKeyDetail(f.ctx, KeyArgs{ConnectionID: testConn, Key: tt.key}).Value()
			require.True(t, ok)
			assert.Equal(t, tt.key, d.Key)
			assert.Equal(t, tt.typ, d.Type)
			assert.Equal(t, tt.ttl, d.TTL)
			assert.Equal(t, tt.value, d.Value)
			assert.Positive(t, d.Size)
			_, err := time.Parse(time.RFC3339, d.CreateTime)
			assert.NoError(t, err)
		})
	}

	res := f.backend.GetKeyDetail(f.ctx, KeyArgs{ConnectionID: testConn, Key: "missing"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "key missing does not exist", res.Message())
}

func TestKeyTypeTTLSize(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("k", "abc")
	f.mr.SetTTL("k", 90*time.Second)

	typ, _ := f.backend.GetKeyType(f.ctx, KeyArgs{ConnectionID: testConn, Key: "k"}).Value()
	assert.Equal(t, types.KeyTypeString, typ)
	typ, _ = f.backend.GetKeyType(f.ctx, KeyArgs{ConnectionID: testConn, Key: "missing"}).Value()
	assert.Equal(t, types.KeyTypeNone, typ)

	ttl, _ := f.backend.GetKeyTTL(f.ctx, KeyArgs{ConnectionID: testConn, Key: "k"}).Value()
	assert.EqualValues(t, 90, ttl)
	ttl, _ = f.backend.GetKeyTTL(f.ctx, KeyArgs{ConnectionID: testConn, Key: "missing"}).Value()
	assert.EqualValues(t, -2, ttl)

	size, ok := f.backend.GetKeySize(f.ctx, KeyArgs{ConnectionID: testConn, Key: "k"}).Value()
	require.True(t, ok)
	assert.Positive(t, size)
}

func TestSetKey(t *testing.T) {
	f := newFixture(t)
	set := func(key, typ string, value any, ttl int64) (bool, string) {
		res := f.backend.SetKey(f.ctx, SetKeyArgs{ConnectionID: testConn, Key: key, KeyType: typ, Value: rawJSON(t, value), TTL: ttl})
		return res.IsOk(), res.Message()
	}

	ok, msg := set("s", types.KeyTypeString, "v", 30)
	require.True(t, ok, msg)
	assert.Equal(t, "created string key s", msg)
	got, _ := f.mr.Get("s")
	assert.Equal(t, "v", got)
	assert.Equal(t, 30*time.Second, f.mr.TTL("s"))

	ok, _ = set("h", types.KeyTypeHash, map[string]string{"a": "1"}, 0)
	require.True(t, ok)
	assert.Equal(t, "1", f.mr.HGet("h", "a"))

	ok, _ = set("h", types.KeyTypeHash, []types.HashField{{Field: "b", Value: "2"}}, 0)
	require.True(t, ok)
	assert.Empty(t, f.mr.HGet("h", "a"), "collections are replaced")
	assert.Equal(t, "2", f.mr.HGet("h", "b"))

	ok, _ = set("h2", types.KeyTypeHash, [][2]string{{"f", "v"}}, 0)
	require.True(t, ok)
	assert.Equal(t, "v", f.mr.HGet("h2", "f"))

	ok, _ = set("l", types.KeyTypeList, []string{"a", "b", "a"}, 0)
	require.True(t, ok)
	list, _ := f.mr.List("l")
	assert.Equal(t, []string{"a", "b", "a"}, list)

	ok, _ = set("set", types.KeyTypeSet, []string{"x", "y"}, 0)
	require.True(t, ok)
	members, _ := f.mr.Members("set")
	assert.ElementsMatch(t, []string{"x", "y"}, members)

	ok, _ = set("z", types.KeyTypeZSet, []any{[]any{"m", 1.5}}, 10)
	require.True(t, ok)
	score, _ := f.mr.ZScore("z", "m")
	assert.Equal(t, 1.5, score)
	assert.Equal(t, 10*time.Second, f.mr.TTL("z"))

	ok, msg = set("x", "stream", []string{}, 0)
	assert.False(t, ok)
	assert.Contains(t, msg, "unsupported type: stream")

	ok, _ = set("bad", types.KeyTypeList, "not a list", 0)
	assert.False(t, ok)

	ok, _ = set("empty", types.KeyTypeSet, []string{}, 0)
	assert.False(t, ok)
	assert.False(t, f.mr.Exists("empty"))

	ok, _ = set("", types.KeyTypeString, "v", 0)
	assert.False(t, ok)
}

func TestRenameDeleteTTL(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("old", "v")

	res := f.backend.RenameKey(f.ctx, RenameKeyArgs{ConnectionID: testConn, OldKey: "old", NewKey: "new"})
	require.True(t, res.IsOk())
	assert.Equal(t, "renamed old to new", res.Message())
	assert.False(t, f.mr.Exists("old"))
	assert.False(t, f.backend.RenameKey(f.ctx, RenameKeyArgs{ConnectionID: testConn, OldKey: "old", NewKey: "x"}).IsOk())

	require.True(t, f.backend.SetKeyTTL(f.ctx, KeyTTLArgs{ConnectionID: testConn, Key: "new", TTL: 100}).IsOk())
	assert.Equal(t, 100*time.Second, f.mr.TTL("new"))

	res = f.backend.SetKeyTTL(f.ctx, KeyTTLArgs{ConnectionID: testConn, Key: "new", TTL: 0})
	require.True(t, res.IsOk())
	assert.Equal(t, "TTL removed", res.Message())
	assert.Zero(t, f.mr.TTL("new"))

	assert.False(t, f.backend.SetKeyTTL(f.ctx, KeyTTLArgs{ConnectionID: testConn, Key: "new", TTL: -1}).IsOk(), "nothing to persist")
	assert.False(t, f.backend.SetKeyTTL(f.ctx, KeyTTLArgs{ConnectionID: testConn, Key: "missing", TTL: 5}).IsOk())

	require.True(t, f.backend.DeleteKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "new"}).IsOk())
	res = f.backend.DeleteKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "new"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "key does not exist", res.Message())
}

func TestHashAndListElements(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.backend.UpdateHashField(f.ctx, HashFieldArgs{ConnectionID: testConn, Key: "h", Field: "f", Value: "v"}).IsOk())
	assert.Equal(t, "v", f.mr.HGet("h", "f"))
	require.True(t, f.backend.DeleteHashField(f.ctx, HashFieldArgs{ConnectionID: testConn, Key: "h", Field: "f"}).IsOk())
	res := f.backend.DeleteHashField(f.ctx, HashFieldArgs{ConnectionID: testConn, Key: "h", Field: "f"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "field f does not exist", res.Message())

	f.mr.Push("l", "a", "b", "c", "b")

	require.True(t, f.backend.UpdateListItem(f.ctx, ListItemArgs{ConnectionID: testConn, Key: "l", Index: -1, Value: "z"}).IsOk())
	list, _ := f.mr.List("l")
	assert.Equal(t, []string{"a", "b", "c", "z"}, list)

	res = f.backend.UpdateListItem(f.ctx, ListItemArgs{ConnectionID: testConn, Key: "l", Index: 4, Value: "q"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "index 4 out of range, list length is 4", res.Message())
	assert.False(t, f.backend.UpdateListItem(f.ctx, ListItemArgs{ConnectionID: testConn, Key: "l", Index: -5}).IsOk())

	res = f.backend.AppendListItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "l", Value: "b"})
	require.True(t, res.IsOk())
	assert.Equal(t, "appended to list l, new length: 5", res.Message())

	res = f.backend.DeleteListItem(f.ctx, ListRemoveArgs{ConnectionID: testConn, Key: "l", Value: "b", Count: 0})
	require.True(t, res.IsOk())
	assert.Equal(t, "removed 2 elements", res.Message())
	res = f.backend.DeleteListItem(f.ctx, ListRemoveArgs{ConnectionID: testConn, Key: "l", Value: "b"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "no matching element found", res.Message())
}

func TestSetAndZSetElements(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.backend.AddSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "s", Value: "m"}).IsOk())
	res := f.backend.AddSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "s", Value: "m"})
	assert.False(t, res.IsOk())
	assert.Equal(t, "member already exists", res.Message())
	require.True(t, f.backend.DeleteSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "s", Value: "m"}).IsOk())
	assert.False(t, f.backend.DeleteSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "s", Value: "m"}).IsOk())

	require.True(t, f.backend.AddZSetItem(f.ctx, ZSetMemberArgs{ConnectionID: testConn, Key: "z", Score: 3, Value: "m"}).IsOk())
	res = f.backend.AddZSetItem(f.ctx, ZSetMemberArgs{ConnectionID: testConn, Key: "z", Score: 9, Value: "m"})
	assert.False(t, res.IsOk())
	score, _ := f.mr.ZScore("z", "m")
	assert.Equal(t, 3.0, score, "existing score is kept")
	require.True(t, f.backend.DeleteZSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "z", Value: "m"}).IsOk())
	assert.False(t, f.backend.DeleteZSetItem(f.ctx, MemberArgs{ConnectionID: testConn, Key: "z", Value: "m"}).IsOk())
}

func TestExportImport(t *testing.T) {
	f := newFixture(t)
	f.mr.Set("app:s", "v")
	f.mr.SetTTL("app:s", time.Hour)
	f.mr.HSet("app:h", "f", "1")
	f.mr.ZAdd("app:z", 2, "m")
	f.mr.Set("other", "x")

	one, ok := f.backend.ExportKey(f.ctx, KeyArgs{ConnectionID: testConn, Key: "app:s"}).Value()
	require.True(t, ok)
	assert.Equal(t, "v", one.Value)

	exported, ok := f.backend.ExportKeys(f.ctx, PatternArgs{ConnectionID: testConn, Pattern: "app:*"}).Value()
	require.True(t, ok)
	require.Len(t, exported, 3)

	// round-trip through JSON as the dispatcher does
	var decoded []types.KeyDetail
	require.NoError(t, json.Unmarshal(rawJSON(t, exported), &decoded))

	require.True(t, f.backend.SelectDb(f.ctx, DbArgs{ConnectionID: testConn, DbIndex: 1}).IsOk())
	res := f.backend.ImportKeys(f.ctx, ImportKeysArgs{ConnectionID: testConn, Keys: decoded})
	require.True(t, res.IsOk(), res.Message())
	assert.Equal(t, "imported all 3 keys", res.Message())

	db1 := f.mr.DB(1)
	got, _ := db1.Get("app:s")
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Hour, db1.TTL("app:s"))
	assert.Equal(t, "1", db1.HGet("app:h", "f"))
	score, _ := db1.ZScore("app:z", "m")
	assert.Equal(t, 2.0, score)

	t.Run("existing keys are skipped without overwrite", func(t *testing.T) {
		record := types.KeyDetail{Key: "app:s", Type: types.KeyTypeString, TTL: -1, Value: "changed"}
		res := f.backend.ImportKey(f.ctx, ImportKeyArgs{ConnectionID: testConn, KeyDetail: record})
		assert.False(t, res.IsOk())
		assert.Equal(t, "key app:s already exists, skipped", res.Message())

		res = f.backend.ImportKey(f.ctx, ImportKeyArgs{ConnectionID: testConn, KeyDetail: record, Overwrite: true})
		require.True(t, res.IsOk(), res.Message())
		assert.Equal(t, "imported key app:s", res.Message())
		got, _ := db1.Get("app:s")
		assert.Equal(t, "changed", got)
		assert.Zero(t, db1.TTL("app:s"))
	})

	t.Run("aggregated failures", func(t *testing.T) {
		res := f.backend.ImportKeys(f.ctx, ImportKeysArgs{ConnectionID: testConn, Keys: []types.KeyDetail{
			{Key: "new:1", Type: types.KeyTypeList, Value: []string{"a"}},
			{Key: "app:h", Type: types.KeyTypeHash, Value: []types.HashField{{Field: "f", Value: "2"}}},
			{Key: "new:2", Type: "stream", Value: nil},
		}})
		assert.False(t, res.IsOk())
		assert.Contains(t, res.Message(), "import finished: 1 succeeded, 2 failed")
		assert.Contains(t, res.Message(), "key app:h already exists, skipped")
		assert.Contains(t, res.Message(), "unsupported type: stream")
		assert.True(t, db1.Exists("new:1"))
	})
}
