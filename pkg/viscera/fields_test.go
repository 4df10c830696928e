package viscera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	parsed, err := ParseTimestamp("2023-05-17T09:30:01.123456")
	require.NoError(t, err)
	assert.Equal(t,
		time.Date(2023, 5, 17, 9, 30, 1, 123456000, time.UTC), parsed)

	parsed, err = ParseTimestamp("2023-05-17T09:30:01.5")
	require.NoError(t, err)
	assert.Equal(t, 500000000, parsed.Nanosecond())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestCheckInt(t *testing.T) {
	n, err := CheckInt(float64(42))
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = CheckInt(7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = CheckInt(4.5)
	assert.Error(t, err)
	_, err = CheckInt("42")
	assert.Error(t, err)
}

func TestCheckStringSlice(t *testing.T) {
	list, err := CheckStringSlice([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	list, err = CheckStringSlice(nil)
	require.NoError(t, err)
	assert.Nil(t, list)

	_, err = CheckStringSlice([]any{"a", 2})
	assert.Error(t, err)
}

func TestCheckOptionalString(t *testing.T) {
	s, err := CheckOptionalString(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = CheckOptionalString("x")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = CheckOptionalString(3)
	assert.Error(t, err)
}

func TestDatumString(t *testing.T) {
	assert.Equal(t, "abc", datumString("abc"))
	assert.Equal(t, "42", datumString(42))
	assert.Equal(t, "42", datumString(float64(42)))
	assert.Equal(t, "4.5", datumString(4.5))
	assert.Equal(t, "true", datumString(true))
}
