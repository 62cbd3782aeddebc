package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercrawl-engine/internal/domain"
	"careercrawl-engine/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, store.Migrate(db.Pool))
	return db
}

func rawPosting(url, title string) domain.RawPosting {
	return domain.RawPosting{
		URL:      url,
		Company:  "acme",
		Title:    title,
		Location: "Austin, Texas",
	}
}

func TestUpsertLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	outcome, changed, err := store.Upsert(ctx, db.Pool, rawPosting("https://acme.example/JobDetail/1", "Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, outcome)
	assert.True(t, changed)

	first, err := store.ListActive(ctx, db.Pool, "acme")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].ScrapeCount)
	assert.True(t, first[0].IsActive)

	// Same observation again: unchanged, but the freshness fields advance.
	outcome, changed, err = store.Upsert(ctx, db.Pool, rawPosting("https://acme.example/JobDetail/1", "Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome)
	assert.False(t, changed)

	second, err := store.ListActive(ctx, db.Pool, "acme")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].ScrapeCount)
	assert.False(t, second[0].LastSeen.Before(first[0].LastSeen))
	assert.Equal(t, first[0].FirstSeen, second[0].FirstSeen)

	// Title change is an update.
	outcome, changed, err = store.Upsert(ctx, db.Pool, rawPosting("https://acme.example/JobDetail/1", "Senior Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)
	assert.True(t, changed)

	third, err := store.ListActive(ctx, db.Pool, "acme")
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "Senior Engineer", third[0].Title)
	assert.Equal(t, 3, third[0].ScrapeCount)
}

func TestDeactivateMissing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	urls := []string{
		"https://acme.example/JobDetail/1",
		"https://acme.example/JobDetail/2",
		"https://acme.example/JobDetail/3",
	}
	for _, u := range urls {
		_, _, err := store.Upsert(ctx, db.Pool, rawPosting(u, "Engineer"))
		require.NoError(t, err)
	}

	// Only 2 and 3 were seen this pass: 1 goes inactive.
	n, err := store.DeactivateMissing(ctx, db.Pool, "acme", urls[1:])
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := store.ActiveURLs(ctx, db.Pool, "acme")
	require.NoError(t, err)
	assert.NotContains(t, active, urls[0])
	assert.Contains(t, active, urls[1])
	assert.Contains(t, active, urls[2])

	// Empty seen set deactivates everything for the company.
	n, err = store.DeactivateMissing(ctx, db.Pool, "acme", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	active, err = store.ActiveURLs(ctx, db.Pool, "acme")
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := store.AllPostings(ctx, db.Pool, true)
	require.NoError(t, err)
	assert.Len(t, all, 3, "sweep must never delete rows")
}

func TestDeactivateScopedToCompany(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	acme := rawPosting("https://acme.example/JobDetail/1", "Engineer")
	other := domain.RawPosting{
		URL:     "https://globex.example/JobDetail/9",
		Company: "globex",
		Title:   "Engineer",
	}
	for _, p := range []domain.RawPosting{acme, other} {
		_, _, err := store.Upsert(ctx, db.Pool, p)
		require.NoError(t, err)
	}

	n, err := store.DeactivateMissing(ctx, db.Pool, "acme", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := store.ActiveURLs(ctx, db.Pool, "globex")
	require.NoError(t, err)
	assert.Contains(t, active, other.URL)
}

func TestReactivation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	p := rawPosting("https://acme.example/JobDetail/1", "Engineer")
	_, _, err := store.Upsert(ctx, db.Pool, p)
	require.NoError(t, err)

	_, err = store.DeactivateMissing(ctx, db.Pool, "acme", nil)
	require.NoError(t, err)

	// Re-observing a deactivated URL flips it back without a new row.
	outcome, changed, err := store.Upsert(ctx, db.Pool, p)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)
	assert.True(t, changed)

	all, err := store.AllPostings(ctx, db.Pool, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsActive)
	assert.Equal(t, 2, all[0].ScrapeCount)
}

func TestExportActive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, _, err := store.Upsert(ctx, db.Pool, rawPosting("https://acme.example/JobDetail/1", "Engineer"))
	require.NoError(t, err)
	_, _, err = store.Upsert(ctx, db.Pool, rawPosting("https://acme.example/JobDetail/2", "Analyst"))
	require.NoError(t, err)
	_, err = store.DeactivateMissing(ctx, db.Pool, "acme", []string{"https://acme.example/JobDetail/1"})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := store.ExportActive(ctx, db.Pool, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var exported []domain.Posting
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Engineer", exported[0].Title)
}
