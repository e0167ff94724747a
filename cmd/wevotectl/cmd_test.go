package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/model"
)

func TestVoterWithRole(t *testing.T) {
	v, err := voterWithRole(model.RoleVerifiedVolunteer)
	require.NoError(t, err)
	assert.Equal(t, []model.VoterRole{model.RoleVerifiedVolunteer}, v.Roles())

	v, err = voterWithRole(model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, v.HighestRole())

	_, err = voterWithRole("superuser")
	assert.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"import-polling-locations"},
		{"create-batch"},
		{"process-next"},
		{"api-key", "create"},
		{"api-key", "list"},
		{"api-key", "revoke"},
		{"voter", "create"},
		{"genkey"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestImportNeedsGlob(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wevote")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"import-polling-locations"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--glob")
}

func TestRevokeRejectsBadID(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wevote")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"api-key", "revoke", "not-a-uuid"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key id")
}

func TestGenKeyWritesLoadablePair(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"genkey", "--dir", dir})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "jwt_private.pem")

	mgr, err := auth.NewJWTManager(filepath.Join(dir, "jwt_private.pem"), filepath.Join(dir, "jwt_public.pem"), time.Hour)
	require.NoError(t, err)
	token, _, err := mgr.IssueToken(model.Voter{WeVoteID: "wvtestvoter1", IsAdmin: true})
	require.NoError(t, err)
	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "wvtestvoter1", claims.VoterWeVoteID)

	_, _, err = writeKeyPair(dir)
	assert.ErrorContains(t, err, "already exists")
}
