package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	require.NoError(t, saveToken(dir, "tok-abc"))
	token, err := loadToken(dir)
	require.NoError(t, err)
	require.Equal(t, "tok-abc", token)

	require.NoError(t, saveToken(dir, "tok-new"))
	token, err = loadToken(dir)
	require.NoError(t, err)
	require.Equal(t, "tok-new", token)
}

func TestLoadTokenMissingFile(t *testing.T) {
	token, err := loadToken(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestDeleteTokenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveToken(dir, "tok"))
	require.NoError(t, deleteToken(dir))
	require.NoError(t, deleteToken(dir))

	token, err := loadToken(dir)
	require.NoError(t, err)
	require.Empty(t, token)
}
