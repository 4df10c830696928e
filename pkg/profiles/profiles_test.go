package profiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return OpenPath(filepath.Join(t.TempDir(), "profiles.yaml"))
}

func TestStoreEmpty(t *testing.T) {
	store := testStore(t)

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Load("nope")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	_, err = store.Default()
	assert.True(t, errors.Is(err, ErrNoDefault))
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	profile := &Profile{
		Name:        "alice",
		URL:         "http://maas.example.com:5240/MAAS/api/2.0/",
		Credentials: "consumer:token:secret",
		Description: []byte(`{"resources": []}`),
	}
	require.NoError(t, store.Save(profile))

	loaded, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, profile.URL, loaded.URL)
	assert.Equal(t, profile.Credentials, loaded.Credentials)
	assert.Equal(t, profile.Description, loaded.Description)
}

func TestStoreFirstSaveBecomesDefault(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(&Profile{
		Name: "first", URL: "http://one.example.com/api/2.0/",
	}))
	require.NoError(t, store.Save(&Profile{
		Name: "second", URL: "http://two.example.com/api/2.0/",
	}))

	def, err := store.Default()
	require.NoError(t, err)
	assert.Equal(t, "first", def.Name)

	require.NoError(t, store.SetDefault("second"))
	def, err = store.Default()
	require.NoError(t, err)
	assert.Equal(t, "second", def.Name)
}

func TestStoreDelete(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(&Profile{
		Name: "gone", URL: "http://one.example.com/api/2.0/",
	}))
	require.NoError(t, store.Delete("gone"))

	_, err := store.Load("gone")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	name, err := store.DefaultName()
	require.NoError(t, err)
	assert.Empty(t, name)

	err = store.Delete("gone")
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestStoreValidation(t *testing.T) {
	store := testStore(t)
	err := store.Save(&Profile{Name: "bad", URL: "not a url"})
	assert.Error(t, err)
	err = store.Save(&Profile{URL: "http://ok.example.com/"})
	assert.Error(t, err)
}

func TestStoreFilePermissions(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(&Profile{
		Name: "p", URL: "http://one.example.com/api/2.0/",
	}))
	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
