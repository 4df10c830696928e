package bones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescription = `{
	"doc": "MAAS API",
	"hash": "abc",
	"resources": [
		{
			"name": "MachinesHandler",
			"anon": null,
			"auth": {
				"name": "MachinesHandler",
				"doc": "Manage machines.",
				"uri": "http://example.com/api/2.0/machines/",
				"path": "/api/2.0/machines/",
				"params": [],
				"actions": [
					{"name": "read", "doc": "", "method": "GET", "op": null, "restful": true},
					{"name": "allocate", "doc": "", "method": "POST", "op": "allocate", "restful": false}
				]
			}
		},
		{
			"name": "VersionHandler",
			"anon": {
				"name": "AnonVersionHandler",
				"doc": "",
				"uri": "http://example.com/api/2.0/version/",
				"path": "/api/2.0/version/",
				"params": [],
				"actions": [
					{"name": "read", "doc": "", "method": "GET", "op": null, "restful": true}
				]
			},
			"auth": null
		}
	]
}`

func TestParseDescription(t *testing.T) {
	desc, err := ParseDescription([]byte(sampleDescription))
	require.NoError(t, err)
	assert.Equal(t, "MAAS API", desc.Doc)
	assert.Equal(t, "abc", desc.Hash)
	require.Len(t, desc.Resources, 2)

	machines := desc.Resources[0]
	assert.Equal(t, "MachinesHandler", machines.Name)
	assert.Nil(t, machines.Anon)
	require.NotNil(t, machines.Auth)
	require.Len(t, machines.Auth.Actions, 2)

	read := machines.Auth.Actions[0]
	assert.Equal(t, "read", read.Name)
	assert.True(t, read.Restful)
	assert.Empty(t, read.Op)

	allocate := machines.Auth.Actions[1]
	assert.Equal(t, "allocate", allocate.Op)
	assert.False(t, allocate.Restful)
}

func TestParseDescriptionRejectsWrongShape(t *testing.T) {
	_, err := ParseDescription([]byte(`{"resources": "nope"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected shape")

	_, err = ParseDescription([]byte(`not json`))
	require.Error(t, err)
}

func TestDescriptionFingerprintIgnoresKeyOrder(t *testing.T) {
	a, err := ParseDescription([]byte(`{"doc": "x", "hash": "h", "resources": []}`))
	require.NoError(t, err)
	b, err := ParseDescription([]byte(`{"resources": [], "hash": "h", "doc": "x"}`))
	require.NoError(t, err)

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
	assert.Len(t, fpA, 64)

	c, err := ParseDescription([]byte(`{"doc": "y", "hash": "h", "resources": []}`))
	require.NoError(t, err)
	fpC, err := c.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpC)
}

func TestDeriveResourceName(t *testing.T) {
	cases := map[string]string{
		"MachinesHandler":     "Machines",
		"AnonMachinesHandler": "Machines",
		"MaasHandler":         "MAAS",
		"AnonMaasHandler":     "MAAS",
		"TagHandler":          "Tag",
		"maasmaas":            "MAASMAAS",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, DeriveResourceName(input), input)
	}
}
