package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{StartTime: time.Date(2024, 3, 10, 6, 0, 0, 123456000, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.True(t, in.StartTime.Equal(out.StartTime))
	require.Equal(t, int64(42), out.ID)
}

func TestDecodeCursorEmpty(t *testing.T) {
	out, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, out)
	require.Empty(t, EncodeCursor(nil))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm8tcGlwZQ", "MjAyNC0wMy0xMHw0Mg"} {
		_, err := DecodeCursor(token)
		require.Error(t, err, token)
	}
}

func TestAfter(t *testing.T) {
	at := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	c := &domain.Cursor{StartTime: at, ID: 5}

	require.True(t, After(nil, at, 5))
	require.True(t, After(c, at, 4))
	require.False(t, After(c, at, 5))
	require.True(t, After(c, at.Add(-time.Second), 99))
	require.False(t, After(c, at.Add(time.Second), 1))
}
