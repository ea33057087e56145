package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestSQLiteStore_AppendAndList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Skip("sqlite not available:", err)
	}
	defer s.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.HistoryEntry{SessionID: "s1", Question: "q1", Answer: "a1", FileName: "a.pdf", Score: 0.5}))
	require.NoError(t, s.Append(ctx, domain.HistoryEntry{SessionID: "s1", Question: "q2", Answer: "a2", FileName: "b.pdf", Score: 0.7}))
	require.NoError(t, s.Append(ctx, domain.HistoryEntry{SessionID: "s2", Question: "other", Answer: "x", FileName: "c.txt"}))

	got, err := s.List(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q2", got[0].Question)
	assert.Equal(t, "q1", got[1].Question)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, 0.7, got[0].Score)

	limited, err := s.List(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.DeleteSession(ctx, "s1"))
	got, err = s.List(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_RequiresSession(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Skip("sqlite not available:", err)
	}
	defer s.Close()
	assert.Error(t, s.Append(context.Background(), domain.HistoryEntry{Question: "q"}))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
