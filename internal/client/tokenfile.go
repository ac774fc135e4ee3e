package client

import (
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "token"

// saveToken persists the session token under the data directory so the
// next launch can sign in without prompting.
func saveToken(dataDir, token string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, tokenFileName), []byte(token), 0o600)
}

// loadToken reads a previously saved token. A missing file returns ""
// with no error.
func loadToken(dataDir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, tokenFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// deleteToken removes the saved token. Deleting an absent file is not
// an error.
func deleteToken(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, tokenFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
