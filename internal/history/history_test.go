package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/history"
	"github.com/tnunamak/usagemeter/internal/usage"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func result(used float64) usage.Result {
	return usage.Result{Lines: []usage.Line{usage.Progress("Session", used, 100, usage.Percent())}}
}

func TestAppendAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, err := s.Append(ctx, "claude", result(10), base)
	require.NoError(t, err)
	_, err = s.Append(ctx, "minimax", result(50), base.Add(time.Minute))
	require.NoError(t, err)
	id3, err := s.Append(ctx, "claude", result(20), base.Add(2*time.Minute))
	require.NoError(t, err)

	parsed, err := ulid.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, uint64(base.UnixMilli()), parsed.Time())

	got, err := s.List(ctx, "claude", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id3, got[0].ID)
	assert.Equal(t, id1, got[1].ID)
	assert.Equal(t, float64(20), got[0].Result.Lines[0].Used)
	assert.True(t, got[0].FetchedAt.Equal(base.Add(2*time.Minute)))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "claude", all[0].Provider)
	assert.Equal(t, "minimax", all[1].Provider)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, id3, limited[0].ID)
}

func TestListEmpty(t *testing.T) {
	s := openStore(t)
	got, err := s.List(context.Background(), "copilot", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReopenKeepsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := history.Open(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), "copilot", result(1), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = history.Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(context.Background(), "copilot", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
