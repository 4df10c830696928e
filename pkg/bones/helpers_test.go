package bones

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/gomaas/pkg/bones/bonestest"
)

func TestAPIURL(t *testing.T) {
	cases := map[string]string{
		"http://example.com/MAAS":          "http://example.com/MAAS/api/2.0/",
		"http://example.com/MAAS/":         "http://example.com/MAAS/api/2.0/",
		"http://example.com/MAAS/api/2.0/": "http://example.com/MAAS/api/2.0/",
		"http://example.com/MAAS/api/1.0":  "http://example.com/MAAS/api/1.0/",
		"http://example.com":               "http://example.com/api/2.0/",
	}
	for input, expected := range cases {
		actual, err := APIURL(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual, input)
	}
}

func TestFetchDescription(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	desc, err := FetchDescription(
		context.Background(), server.APIURL(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, "MAAS API", desc.Doc)
	assert.Len(t, desc.Resources, 3)
}

func TestFetchDescriptionBadTarget(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	_, err := FetchDescription(
		context.Background(), server.URL()+"nowhere/", nil, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemote))
	assert.Contains(t, err.Error(), "404")
}

func TestLogin(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	profile, session, err := Login(
		context.Background(), server.URL(), "admin", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "admin", profile.Name)
	assert.Equal(t, server.APIURL(), profile.URL)
	assert.NotEmpty(t, profile.Credentials)
	assert.False(t, session.IsAnonymous())
}

func TestLoginCredentialsInURL(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	url := "http://admin:hunter2@" + server.URL()[len("http://"):]
	profile, _, err := Login(context.Background(), url, "", "")
	require.NoError(t, err)
	assert.Equal(t, "admin", profile.Name)

	_, _, err = Login(context.Background(), url, "admin", "hunter2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLogin))
}

func TestLoginIncompleteCredentials(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	_, _, err := Login(context.Background(), server.URL(), "admin", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")

	_, _, err = Login(context.Background(), server.URL(), "", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-name")
}

func TestLoginNotSupported(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()
	server.Capabilities = []string{"networks-management"}

	_, _, err := Login(context.Background(), server.URL(), "admin", "hunter2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoginNotSupported))
}

func TestConnectAnonymous(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	profile, session, err := Connect(context.Background(), server.URL(), "")
	require.NoError(t, err)
	assert.Empty(t, profile.Credentials)
	assert.True(t, session.IsAnonymous())
}

func TestConnectRejectsUserInURL(t *testing.T) {
	server := bonestest.NewServer()
	defer server.Close()

	url := "http://admin@" + server.URL()[len("http://"):]
	_, _, err := Connect(context.Background(), url, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
}
