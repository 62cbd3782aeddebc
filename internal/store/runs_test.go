package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercrawl-engine/internal/domain"
	"careercrawl-engine/internal/store"
)

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, db.Pool)
	require.NoError(t, err)

	runs, err := store.RecentRuns(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)

	totals := store.RunTotals{SitesScraped: 2, JobsFound: 10, JobsNew: 4, JobsUpdated: 1, JobsDeactivated: 3}
	require.NoError(t, store.CompleteRun(ctx, db.Pool, id, totals, domain.RunStatusCompleted, ""))

	runs, err = store.RecentRuns(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, domain.RunStatusCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, 2, r.SitesScraped)
	assert.Equal(t, 10, r.JobsFound)
	assert.Equal(t, 4, r.JobsNew)
	assert.Equal(t, 1, r.JobsUpdated)
	assert.Equal(t, 3, r.JobsDeactivated)
}

func TestCompleteRunIsFinal(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := store.StartRun(ctx, db.Pool)
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, db.Pool, id, store.RunTotals{JobsNew: 1}, domain.RunStatusCompleted, ""))

	// A second completion must not rewrite the record.
	require.NoError(t, store.CompleteRun(ctx, db.Pool, id, store.RunTotals{JobsNew: 99}, domain.RunStatusFailed, "late"))

	runs, err := store.RecentRuns(ctx, db.Pool, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].JobsNew)
	assert.Empty(t, runs[0].ErrorMessage)
}

func TestRecentRunsNewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.StartRun(ctx, db.Pool)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.RecentRuns(ctx, db.Pool, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, u := range []string{
		"https://acme.example/JobDetail/1",
		"https://acme.example/JobDetail/2",
	} {
		_, _, err := store.Upsert(ctx, db.Pool, rawPosting(u, "Engineer"))
		require.NoError(t, err)
	}
	_, err := store.DeactivateMissing(ctx, db.Pool, "acme", []string{"https://acme.example/JobDetail/1"})
	require.NoError(t, err)

	// An orphaned running run followed by a completed one: stats report
	// the completed one.
	_, err = store.StartRun(ctx, db.Pool)
	require.NoError(t, err)
	id, err := store.StartRun(ctx, db.Pool)
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, db.Pool, id, store.RunTotals{JobsNew: 2}, domain.RunStatusCompleted, ""))

	s, err := store.Stats(ctx, db.Pool)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalPostings)
	assert.Equal(t, 1, s.ActivePostings)
	assert.Equal(t, 1, s.InactivePostings)
	assert.Equal(t, map[string]int{"acme": 1}, s.ByCompany)
	assert.Equal(t, 2, s.TotalRuns)
	require.NotNil(t, s.LastRun)
	assert.Equal(t, id, s.LastRun.ID)
	assert.Equal(t, 2, s.LastRun.JobsNew)
}
