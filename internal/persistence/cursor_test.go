package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{
		OccurredAt: time.Date(2025, time.March, 12, 18, 30, 0, 123456789, time.UTC),
		ID:         "workout-42",
	}

	token := EncodeCursor(cursor)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, cursor.OccurredAt.Equal(decoded.OccurredAt))
	require.Equal(t, cursor.ID, decoded.ID)
}

func TestCursorEmptyToken(t *testing.T) {
	decoded, err := DecodeCursor("   ")
	require.NoError(t, err)
	require.Nil(t, decoded)

	require.Empty(t, EncodeCursor(nil))
}

func TestCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	require.Error(t, err)
}
