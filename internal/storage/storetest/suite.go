// Package storetest holds a compliance suite shared by storage.Store backends.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/storage"
)

// Run exercises a storage.Store implementation. makeStore must return a
// usable store; the suite scopes its data to fresh session IDs so a shared
// database is fine.
func Run(t *testing.T, makeStore func(t *testing.T) storage.Store) {
	t.Helper()

	s := makeStore(t)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	t.Run("SaveMeal assigns ID and keeps items in order", func(t *testing.T) {
		session := newSession()
		meal := &models.SavedMeal{
			SessionID: session,
			Items: []models.RecognizedItem{
				item("банан", 100, 90, models.ConfidenceHigh),
				item("каша", 150, 120, models.ConfidenceMedium),
			},
			Totals: models.Totals{Kcal: 270},
		}
		if err := s.SaveMeal(ctx, meal, nil); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}
		if meal.ID == "" {
			t.Fatal("expected meal ID to be generated")
		}
		if meal.CreatedAt.IsZero() {
			t.Fatal("expected CreatedAt to be set")
		}

		got, err := s.GetMeal(ctx, session, meal.ID)
		if err != nil {
			t.Fatalf("GetMeal: %v", err)
		}
		if len(got.Items) != 2 || got.Items[0].Name != "банан" || got.Items[1].Name != "каша" {
			t.Fatalf("unexpected items: %+v", got.Items)
		}
		if !got.Items[0].Included || got.Items[1].Confidence != models.ConfidenceMedium {
			t.Errorf("item fields not preserved: %+v", got.Items)
		}
		if got.Totals.Kcal != 270 {
			t.Errorf("Totals.Kcal = %v, want 270", got.Totals.Kcal)
		}
	})

	t.Run("GetMeal is scoped to the session", func(t *testing.T) {
		meal := &models.SavedMeal{SessionID: newSession(), Items: []models.RecognizedItem{item("суп", 200, 40, models.ConfidenceHigh)}}
		if err := s.SaveMeal(ctx, meal, nil); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}
		_, err := s.GetMeal(ctx, newSession(), meal.ID)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("GetMeal from other session: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListMeals is newest first and honours filters", func(t *testing.T) {
		session := newSession()
		base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		for i, h := range []int{0, 4, 26} {
			meal := &models.SavedMeal{
				SessionID: session,
				CreatedAt: base.Add(time.Duration(h) * time.Hour),
				Items:     []models.RecognizedItem{item("meal", float64(100+i), 100, models.ConfidenceHigh)},
			}
			if err := s.SaveMeal(ctx, meal, nil); err != nil {
				t.Fatalf("SaveMeal: %v", err)
			}
		}

		all, err := s.ListMeals(ctx, session, storage.MealFilter{})
		if err != nil {
			t.Fatalf("ListMeals: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("len = %d, want 3", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].CreatedAt.After(all[i-1].CreatedAt) {
				t.Errorf("meals not newest first at %d", i)
			}
		}

		day, err := s.ListMeals(ctx, session, storage.MealFilter{Since: base, Until: base.AddDate(0, 0, 1)})
		if err != nil {
			t.Fatalf("ListMeals(day): %v", err)
		}
		if len(day) != 2 {
			t.Errorf("meals in day = %d, want 2", len(day))
		}

		limited, err := s.ListMeals(ctx, session, storage.MealFilter{Limit: 1})
		if err != nil {
			t.Fatalf("ListMeals(limit): %v", err)
		}
		if len(limited) != 1 || !limited[0].CreatedAt.Equal(all[0].CreatedAt) {
			t.Errorf("limit did not return the newest meal: %+v", limited)
		}
	})

	t.Run("DeleteMeal is idempotent", func(t *testing.T) {
		session := newSession()
		meal := &models.SavedMeal{SessionID: session, Items: []models.RecognizedItem{item("яблоко", 80, 52, models.ConfidenceHigh)}}
		if err := s.SaveMeal(ctx, meal, nil); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}

		if err := s.DeleteMeal(ctx, session, "nonexistent-id"); err != nil {
			t.Fatalf("DeleteMeal(missing): %v", err)
		}
		if n := count(t, s, session); n != 1 {
			t.Fatalf("history size = %d after deleting missing id, want 1", n)
		}

		if err := s.DeleteMeal(ctx, session, meal.ID); err != nil {
			t.Fatalf("DeleteMeal: %v", err)
		}
		if err := s.DeleteMeal(ctx, session, meal.ID); err != nil {
			t.Fatalf("DeleteMeal twice: %v", err)
		}
		if n := count(t, s, session); n != 0 {
			t.Fatalf("history size = %d, want 0", n)
		}
	})

	t.Run("Images are deduplicated and cleaned up", func(t *testing.T) {
		session := newSession()
		img := &models.Image{Digest: "digest-" + uuid.New().String(), MIMEType: "image/png", Data: []byte{1, 2, 3}}

		first := &models.SavedMeal{SessionID: session, Items: []models.RecognizedItem{item("a", 100, 1, models.ConfidenceHigh)}}
		second := &models.SavedMeal{SessionID: session, Items: []models.RecognizedItem{item("b", 100, 1, models.ConfidenceHigh)}}
		if err := s.SaveMeal(ctx, first, img); err != nil {
			t.Fatalf("SaveMeal(first): %v", err)
		}
		if err := s.SaveMeal(ctx, second, img); err != nil {
			t.Fatalf("SaveMeal(second): %v", err)
		}
		if first.ImageDigest != img.Digest {
			t.Errorf("ImageDigest = %q, want %q", first.ImageDigest, img.Digest)
		}

		got, err := s.GetImage(ctx, session, img.Digest)
		if err != nil {
			t.Fatalf("GetImage: %v", err)
		}
		if got.MIMEType != "image/png" || len(got.Data) != 3 {
			t.Errorf("unexpected image: %+v", got)
		}
		if _, err := s.GetImage(ctx, newSession(), img.Digest); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetImage from other session: err = %v, want ErrNotFound", err)
		}

		if err := s.DeleteMeal(ctx, session, first.ID); err != nil {
			t.Fatalf("DeleteMeal: %v", err)
		}
		if _, err := s.GetImage(ctx, session, img.Digest); err != nil {
			t.Fatalf("image removed while still referenced: %v", err)
		}
		if err := s.DeleteMeal(ctx, session, second.ID); err != nil {
			t.Fatalf("DeleteMeal: %v", err)
		}
		if _, err := s.GetImage(ctx, session, img.Digest); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("orphan image kept: err = %v", err)
		}
	})

	t.Run("PruneMeals keeps the newest", func(t *testing.T) {
		session := newSession()
		base := time.Now().Add(-time.Hour)
		var newest string
		for i := 0; i < 5; i++ {
			meal := &models.SavedMeal{
				SessionID: session,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
				Items:     []models.RecognizedItem{item("x", 10, 10, models.ConfidenceHigh)},
			}
			if err := s.SaveMeal(ctx, meal, nil); err != nil {
				t.Fatalf("SaveMeal: %v", err)
			}
			newest = meal.ID
		}

		removed, err := s.PruneMeals(ctx, session, 2)
		if err != nil {
			t.Fatalf("PruneMeals: %v", err)
		}
		if removed != 3 {
			t.Errorf("removed = %d, want 3", removed)
		}
		meals, err := s.ListMeals(ctx, session, storage.MealFilter{})
		if err != nil {
			t.Fatalf("ListMeals: %v", err)
		}
		if len(meals) != 2 || meals[0].ID != newest {
			t.Errorf("unexpected meals after prune: %d, newest kept = %v", len(meals), len(meals) > 0 && meals[0].ID == newest)
		}
	})
}

func newSession() string {
	return "s-" + uuid.New().String()
}

func item(name string, portion, kcal float64, c models.Confidence) models.RecognizedItem {
	return models.RecognizedItem{
		ID:           uuid.New().String(),
		Name:         name,
		PortionGrams: portion,
		KcalPer100g:  kcal,
		Confidence:   c,
		Included:     true,
	}
}

func count(t *testing.T, s storage.Store, session string) int {
	t.Helper()
	meals, err := s.ListMeals(context.Background(), session, storage.MealFilter{})
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	return len(meals)
}
