package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCredentialFile(t, `
credentials:
  - user_id: default
    platform: facebook
    access_token: fb-token
    page_id: "1234"
  - user_id: default
    platform: whatsapp
    account_id: AC123
    access_token: twilio-token
    phone_number: "+14155550100"
`)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "facebook", loaded[0].Platform)
	assert.Equal(t, "1234", loaded[0].PageID)
	assert.Equal(t, "+14155550100", loaded[1].PhoneNumber)
}

func TestLoadFileExpandsEnvironment(t *testing.T) {
	t.Setenv("CONDUIT_TEST_FB_TOKEN", "from-env")

	path := writeCredentialFile(t, `
credentials:
  - user_id: default
    platform: facebook
    access_token: ${CONDUIT_TEST_FB_TOKEN}
`)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "from-env", loaded[0].AccessToken)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := writeCredentialFile(t, `
credentials:
  - user_id: default
    platform: facebook
    acces_token: typo-loses-the-secret
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acces_token")
}

func TestLoadFileRejectsIncompleteCredential(t *testing.T) {
	path := writeCredentialFile(t, `
credentials:
  - user_id: default
    platform: facebook
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secret")
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFileEmptyFile(t *testing.T) {
	path := writeCredentialFile(t, "")

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
