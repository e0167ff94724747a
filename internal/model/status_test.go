package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/model"
)

func TestStatus(t *testing.T) {
	s := model.NewStatus("RETRIEVE_POSITION_FOUND", "")
	s.Addf("POSITION_SAVE_FAILED: %s", "timeout")
	other := model.NewStatus(model.StatusValidVoterIDMissing)
	s.Merge(other)

	assert.Equal(t, "RETRIEVE_POSITION_FOUND POSITION_SAVE_FAILED: timeout VALID_VOTER_ID_MISSING", s.String())
	assert.True(t, s.Has("POSITION_SAVE_FAILED"))
	assert.False(t, s.Has("POSITION_SAVE"))
	assert.True(t, s.Contains("SAVE"))
	assert.Len(t, s.Codes(), 3)
	assert.True(t, model.Status{}.Empty())
}

func TestStatusJSON(t *testing.T) {
	in := struct {
		Status  model.Status `json:"status"`
		Success bool         `json:"success"`
	}{Status: model.NewStatus("A", "B")}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"A B","success":false}`, string(b))

	var out struct {
		Status model.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.Status.Has("B"))
}
