package nutrition

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/storage/sqlite"
)

func newTestTracker(t *testing.T, retention int) (*Tracker, *sqlite.SQLiteStore) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "mamachef-tracker-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "meals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewTracker(store, retention), store
}

func TestTrackerCommit(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTestTracker(t, 0)

	items, err := Ingest([]byte(bananaPayload))
	require.NoError(t, err)
	extra := models.RecognizedItem{ID: "x", Name: "сок", PortionGrams: 200, KcalPer100g: 45, Confidence: models.ConfidenceHigh, Included: false}
	items = append(items, extra)

	photo := &models.InlineData{MIMEType: "image/jpeg", Data: []byte("photo")}
	meal, err := tracker.Commit(ctx, "s1", items, CommitOptions{Image: photo})
	require.NoError(t, err)

	assert.NotEmpty(t, meal.ID)
	require.Len(t, meal.Items, 1, "only included items are frozen")
	assert.InDelta(t, 90, meal.Totals.Kcal, 1e-9)
	assert.Equal(t, inline.Digest(photo), meal.ImageDigest)

	img, err := store.GetImage(ctx, "s1", meal.ImageDigest)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
}

func TestTrackerCommitEmptySelection(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t, 0)

	items, err := Ingest([]byte(bananaPayload))
	require.NoError(t, err)
	items[0].Included = false

	_, err = tracker.Commit(ctx, "s1", items, CommitOptions{})
	assert.ErrorIs(t, err, ErrEmptySelection)

	history, err := tracker.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "no meal is appended")
}

func TestTrackerCommitLowConfidence(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t, 0)
	items := []models.RecognizedItem{{ID: "1", Name: "соус", PortionGrams: 30, KcalPer100g: 200, Confidence: models.ConfidenceLow, Included: true}}

	_, err := tracker.Commit(ctx, "s1", items, CommitOptions{})
	assert.ErrorIs(t, err, ErrUnconfirmedItems)

	meal, err := tracker.Commit(ctx, "s1", items, CommitOptions{ConfirmLowConfidence: true})
	require.NoError(t, err)
	assert.InDelta(t, 60, meal.Totals.Kcal, 1e-9)
}

func TestTrackerDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t, 0)
	items, err := Ingest([]byte(bananaPayload))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tracker.Commit(ctx, "s1", items, CommitOptions{})
		require.NoError(t, err)
	}

	require.NoError(t, tracker.Delete(ctx, "s1", "nonexistent-id"))
	history, err := tracker.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestTrackerRetention(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t, 2)
	items, err := Ingest([]byte(bananaPayload))
	require.NoError(t, err)

	base := time.Now()
	step := 0
	tracker.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	var last *models.SavedMeal
	for i := 0; i < 4; i++ {
		last, err = tracker.Commit(ctx, "s1", items, CommitOptions{})
		require.NoError(t, err)
	}

	history, err := tracker.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, last.ID, history[0].ID)
}

func TestTrackerDailySummary(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t, 0)
	items, err := Ingest([]byte(bananaPayload))
	require.NoError(t, err)

	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{day, day.Add(3 * time.Hour), day.AddDate(0, 0, 1)} {
		at := at
		tracker.now = func() time.Time { return at }
		_, err := tracker.Commit(ctx, "s1", items, CommitOptions{})
		require.NoError(t, err)
	}

	summary, err := tracker.DailySummary(ctx, "s1", day, DefaultTargets())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", summary.Date)
	assert.Equal(t, 2, summary.Meals)
	assert.InDelta(t, 180, summary.Totals.Kcal, 1e-9)
	assert.InDelta(t, 42, summary.Totals.Carbs, 1e-9)
	assert.Equal(t, 13, summary.Progress.Kcal)
	assert.InDelta(t, 42*KcalPerGramCarbs, summary.Macros.Carbs, 1e-9)
}
