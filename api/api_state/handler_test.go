package api_state_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dracory/weeredis/api/api_state"
	"github.com/dracory/weeredis/shared/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	store := state.New(nil)
	p := store.CreateProfile(state.ProfileInput{Name: "local", Host: "127.0.0.1", Port: 6379, Password: "hunter2"})
	require.NoError(t, store.SetDatabaseIndex(2))
	store.SetCurrentKey("session:1")

	rr := httptest.NewRecorder()
	api_state.New(store).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api?action=state", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hunter2")

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			State state.View `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, p.ID, resp.Data.State.ActiveID)
	assert.Equal(t, 2, resp.Data.State.DatabaseIndex)
	require.NotNil(t, resp.Data.State.CurrentKey)
	assert.Equal(t, "session:1", *resp.Data.State.CurrentKey)
	require.Len(t, resp.Data.State.Profiles, 1)

	got, _ := store.Profile(p.ID)
	assert.Equal(t, "hunter2", got.Password, "the stored profile keeps its password")
}

func TestState_RejectsPost(t *testing.T) {
	rr := httptest.NewRecorder()
	api_state.New(state.New(nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api?action=state", nil))
	assert.Contains(t, rr.Body.String(), `"status":"error"`)
}
