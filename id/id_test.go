package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtEncodesTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	s := NewAt(at)
	assert.Len(t, s, 26)

	parsed, err := ulid.ParseStrict(s)
	require.NoError(t, err)
	assert.True(t, at.Equal(ulid.Time(parsed.Time())), "got %s", ulid.Time(parsed.Time()))

	later := NewAt(at.Add(time.Minute))
	assert.Less(t, s, later)
}

func TestNewAtSameMillisecondIsMonotonic(t *testing.T) {
	at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	prev := NewAt(at)
	for i := 0; i < 100; i++ {
		next := NewAt(at)
		assert.Less(t, prev, next)
		prev = next
	}
}
