package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRunInput(org, deal, hash string) model.RunInput {
	return model.RunInput{
		OrgID:          org,
		DealID:         deal,
		Posture:        "base",
		Hashes:         model.RunHashes{Input: hash, Output: "out-" + hash, Policy: "pol"},
		Input:          json.RawMessage(`{"deal":{"market":{"arv":300000}}}`),
		Output:         json.RawMessage(`{"calculations":{"instantCashOffer":180000}}`),
		Trace:          json.RawMessage(`[{"rule":"POLICY_RESOLVE"}]`),
		PolicySnapshot: json.RawMessage(`{"minSpread":15000}`),
		Meta:           model.RunMeta{EngineVersion: "1.0.0", PolicyVersion: "v3", DurationMs: 4},
	}
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "h1"))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Deduped)
	require.NotEmpty(t, res.Run.ID)

	got, err := st.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, "deal-1", got.DealID)
	assert.Equal(t, "h1", got.Hashes.Input)
	assert.Equal(t, "out-h1", got.Hashes.Output)
	assert.JSONEq(t, `{"calculations":{"instantCashOffer":180000}}`, string(got.Output))
	assert.JSONEq(t, `[{"rule":"POLICY_RESOLVE"}]`, string(got.Trace))
	assert.Equal(t, "v3", got.Meta.PolicyVersion)
	assert.Equal(t, int64(4), got.Meta.DurationMs)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_SaveRun_Dedup(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "same"))
	require.NoError(t, err)
	second, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "same"))
	require.NoError(t, err)

	assert.True(t, second.Deduped)
	assert.Equal(t, first.Run.ID, second.Run.ID)

	// Same hash in another org is a distinct run.
	other, err := st.SaveRun(ctx, testRunInput("org-2", "deal-1", "same"))
	require.NoError(t, err)
	assert.False(t, other.Deduped)
	assert.NotEqual(t, first.Run.ID, other.Run.ID)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_SaveRun_ConcurrentDedup(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "race"))
			if err == nil {
				ids[i] = res.Run.ID
			}
		}()
	}
	wg.Wait()

	runs, err := st.ListRuns(ctx, RunFilter{OrgID: "org-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	for _, id := range ids {
		if id != "" {
			assert.Equal(t, runs[0].ID, id)
		}
	}
}

func TestSQLite_SaveRun_Validation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRunInput("org-1", "deal-1", "")
	_, err := st.SaveRun(ctx, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input hash")

	in = testRunInput("org-1", "deal-1", "h")
	in.Output = nil
	_, err = st.SaveRun(ctx, in)
	require.Error(t, err)
}

func TestSQLite_SaveRun_NullableColumns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRunInput("org-1", "deal-1", "bare")
	in.Trace = nil
	in.PolicySnapshot = nil
	in.Posture = ""
	res, err := st.SaveRun(ctx, in)
	require.NoError(t, err)

	got, err := st.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Trace)
	assert.Nil(t, got.PolicySnapshot)
	assert.Equal(t, "base", got.Posture)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := range 5 {
		in := testRunInput("org-1", fmt.Sprintf("deal-%d", i%2), fmt.Sprintf("h%d", i))
		if i == 4 {
			in.Posture = "aggressive"
		}
		_, err := st.SaveRun(ctx, in)
		require.NoError(t, err)
	}
	_, err := st.SaveRun(ctx, testRunInput("org-2", "deal-0", "x"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter RunFilter
		want   int
	}{
		{"all", RunFilter{}, 6},
		{"org", RunFilter{OrgID: "org-1"}, 5},
		{"deal", RunFilter{DealID: "deal-0"}, 4},
		{"org and deal", RunFilter{OrgID: "org-1", DealID: "deal-1"}, 2},
		{"posture", RunFilter{Posture: "aggressive"}, 1},
		{"limit", RunFilter{Limit: 2}, 2},
		{"offset", RunFilter{Limit: 10, Offset: 4}, 2},
		{"no match", RunFilter{OrgID: "missing"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := st.ListRuns(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, runs, tt.want)
		})
	}
}

func TestSQLite_ListRuns_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "a"))
	require.NoError(t, err)
	second, err := st.SaveRun(ctx, testRunInput("org-1", "deal-1", "b"))
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.False(t, runs[0].CreatedAt.Before(runs[1].CreatedAt))
	assert.ElementsMatch(t, []string{first.Run.ID, second.Run.ID}, []string{runs[0].ID, runs[1].ID})
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}
