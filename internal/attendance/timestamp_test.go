package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2/7/2025 9:05", "2025-02-07 09:05:00"},
		{"12/31/2024 23:59:59", "2024-12-31 23:59:59"},
		{"7/Feb/2025 12:28", "2025-02-07 12:28:00"},
		{"07/feb/2025 12:28:30", "2025-02-07 12:28:30"},
		{"1/DEC/2025 0:00", "2025-12-01 00:00:00"},
		{"2/7/2025 12:5", "2025-02-07 12:05:00"},
		{"2/7/2025 9:5:7", "2025-02-07 09:05:07"},

		// unrecognised input comes back untouched
		{"2025-02-07 12:28:00", "2025-02-07 12:28:00"},
		{"2/7/2025", "2/7/2025"},
		{"2/7/2025 12:28 PM", "2/7/2025 12:28 PM"},
		{"2/7 12:28", "2/7 12:28"},
		{"7/Foo/2025 12:28", "7/Foo/2025 12:28"},
		{"2/7/2025 12", "2/7/2025 12"},
		{"2/7/2025 12:", "2/7/2025 12:"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTimestamp(tc.in))
		})
	}
}

func TestNormalizeTimestampIdempotent(t *testing.T) {
	for _, in := range []string{"2/7/2025 9:05", "7/Feb/2025 12:28:30", "garbage"} {
		once := NormalizeTimestamp(in)
		assert.Equal(t, once, NormalizeTimestamp(once), in)
	}
}

func TestParseTimestamp(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	got, ok := ParseTimestamp("2/7/2025 12:28", manila)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 7, 12, 28, 0, 0, manila), got)
	assert.Equal(t, time.Date(2025, 2, 7, 4, 28, 0, 0, time.UTC), got.UTC())

	got, ok = ParseTimestamp("2/7/2025 12:5", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 7, 12, 5, 0, 0, time.UTC), got)

	got, ok = ParseTimestamp("2025-02-07 12:28:00", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 7, 12, 28, 0, 0, time.UTC), got)

	for _, bad := range []string{"13/40/2025 12:00", "2/7/2025 25:00", "soon", ""} {
		_, ok := ParseTimestamp(bad, time.UTC)
		assert.False(t, ok, bad)
	}
}
