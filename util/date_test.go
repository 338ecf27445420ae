package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2024-03-10")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("10/03/2024")
	require.Error(t, err)

	_, err = ParseDate("")
	require.Error(t, err)
}

func TestParseDatePtr(t *testing.T) {
	parsed, err := ParseDatePtr("")
	require.NoError(t, err)
	require.Nil(t, parsed)

	parsed, err = ParseDatePtr("2024-03-10")
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *parsed)

	_, err = ParseDatePtr("not-a-date")
	require.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	parsed, err := ParseMonth("2024-03")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseMonth("2024-03-10")
	require.Error(t, err)
}
