package backend

import (
	"encoding/json"
	"testing"

	"github.com/dracory/weeredis/shared/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherCommands(t *testing.T) {
	d := NewDispatcher(New(NewRegistry(0, quiet), WithLogger(quiet)))
	assert.Len(t, d.Commands(), 30)
	assert.True(t, d.Has(CmdGetRedisServerInfo))
	assert.False(t, d.Has("flushall"))
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.backend)

	t.Run("unknown command", func(t *testing.T) {
		_, err := d.Dispatch(f.ctx, "flushall", nil)
		assert.ErrorIs(t, err, ErrUnknownCommand)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		_, err := d.Dispatch(f.ctx, CmdGetKey, json.RawMessage(`{"key":42}`))
		assert.ErrorIs(t, err, ErrInvalidArguments)
	})

	t.Run("missing arguments decode to zero values", func(t *testing.T) {
		out, err := d.Dispatch(f.ctx, CmdGetKeys, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"message":"redis not connected"}`, string(out))
	})

	t.Run("camelCase arguments", func(t *testing.T) {
		out, err := d.Dispatch(f.ctx, CmdSetKey, json.RawMessage(`{"connectionId":"conn-1","key":"k","keyType":"string","value":"v","ttl":0}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"created string key k"}`, string(out))

		out, err = d.Dispatch(f.ctx, CmdGetKey, json.RawMessage(`{"connectionId":"conn-1","key":"k"}`))
		require.NoError(t, err)
		var env result.Envelope[string]
		require.NoError(t, json.Unmarshal(out, &env))
		assert.True(t, env.Success)
		require.NotNil(t, env.Data)
		assert.Equal(t, "v", *env.Data)
	})

	t.Run("logical failures are envelopes", func(t *testing.T) {
		out, err := d.Dispatch(f.ctx, CmdDeleteKey, json.RawMessage(`{"connectionId":"conn-1","key":"missing"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"message":"key does not exist"}`, string(out))
	})
}
