package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/metrics"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/storage"
)

var (
	ErrEmptySelection   = errors.New("no items selected")
	ErrUnconfirmedItems = errors.New("low-confidence items need confirmation")
)

// CommitOptions control how a batch is frozen into a meal.
type CommitOptions struct {
	// ConfirmLowConfidence allows saving included low-confidence items.
	ConfirmLowConfidence bool

	// Image is stored alongside the meal when set.
	Image *models.InlineData
}

// Tracker persists committed meals and answers history and summary queries.
type Tracker struct {
	store     storage.Store
	retention int
	now       func() time.Time
}

// NewTracker creates a Tracker. retention is the number of newest meals kept
// per session; 0 keeps everything.
func NewTracker(store storage.Store, retention int) *Tracker {
	return &Tracker{store: store, retention: retention, now: time.Now}
}

// Commit filters the included items, computes their totals once and appends
// the frozen meal to the session history.
func (t *Tracker) Commit(ctx context.Context, sessionID string, items []models.RecognizedItem, opts CommitOptions) (*models.SavedMeal, error) {
	included := make([]models.RecognizedItem, 0, len(items))
	for _, item := range items {
		if item.Included {
			included = append(included, item)
		}
	}
	if len(included) == 0 {
		return nil, ErrEmptySelection
	}
	if !opts.ConfirmLowConfidence {
		for _, item := range included {
			if item.Confidence == models.ConfidenceLow {
				return nil, fmt.Errorf("%w: %s", ErrUnconfirmedItems, item.Name)
			}
		}
	}

	meal := &models.SavedMeal{
		SessionID: sessionID,
		CreatedAt: t.now(),
		Items:     included,
		Totals:    ComputeTotals(included),
	}

	var img *models.Image
	if opts.Image != nil {
		img = &models.Image{
			Digest:   inline.Digest(opts.Image),
			MIMEType: opts.Image.MIMEType,
			Data:     opts.Image.Data,
		}
	}

	if err := t.store.SaveMeal(ctx, meal, img); err != nil {
		return nil, fmt.Errorf("failed to save meal: %w", err)
	}
	metrics.MealSaved()
	slog.Info("Meal saved",
		"session_id", sessionID,
		"meal_id", meal.ID,
		"items", len(meal.Items),
		"kcal", meal.Totals.Kcal,
	)

	if t.retention > 0 {
		removed, err := t.store.PruneMeals(ctx, sessionID, t.retention)
		if err != nil {
			slog.Warn("Meal pruning failed", "session_id", sessionID, "error", err)
		} else if removed > 0 {
			metrics.MealsPruned(removed)
			slog.Info("Pruned old meals", "session_id", sessionID, "removed", removed)
		}
	}

	return meal, nil
}

// Delete removes a meal. A missing meal is not an error.
func (t *Tracker) Delete(ctx context.Context, sessionID, mealID string) error {
	if err := t.store.DeleteMeal(ctx, sessionID, mealID); err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	return nil
}

// History returns the session's meals, newest first.
func (t *Tracker) History(ctx context.Context, sessionID string, limit int) ([]*models.SavedMeal, error) {
	meals, err := t.store.ListMeals(ctx, sessionID, storage.MealFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return meals, nil
}

// DailySummary aggregates all meals of one calendar day.
type DailySummary struct {
	Date     string         `json:"date"`
	Meals    int            `json:"meals"`
	Totals   models.Totals  `json:"totals"`
	Targets  models.Targets `json:"targets"`
	Progress Progress       `json:"progress"`
	Macros   MacroCalories  `json:"macroKcal"`
}

// DailySummary computes the totals of the day containing day, in day's
// location, against the given targets.
func (t *Tracker) DailySummary(ctx context.Context, sessionID string, day time.Time, targets models.Targets) (*DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	meals, err := t.store.ListMeals(ctx, sessionID, storage.MealFilter{
		Since: start,
		Until: start.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	totals := SumMeals(meals)
	return &DailySummary{
		Date:     start.Format(time.DateOnly),
		Meals:    len(meals),
		Totals:   totals,
		Targets:  targets,
		Progress: ProgressOf(totals, targets),
		Macros:   MacroCaloriesOf(totals),
	}, nil
}
