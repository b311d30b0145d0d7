package service

import (
	"context"
	"math"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/models"
)

const analysisReply = `{"items":[
	{"name":"банан","portionGrams":100,"kcalPer100g":90,"proteinPer100g":1.1,"fatPer100g":0.3,"carbsPer100g":21,"confidence":"high"},
	{"name":"печенье","portionGrams":30,"kcalPer100g":450,"proteinPer100g":6,"fatPer100g":18,"carbsPer100g":65,"confidence":"low"}
]}`

func itemByName(t *testing.T, items []models.RecognizedItem, name string) models.RecognizedItem {
	t.Helper()
	for _, item := range items {
		if item.Name == name {
			return item
		}
	}
	t.Fatalf("item %q not in batch", name)
	return models.RecognizedItem{}
}

func TestTrackerFlow(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	ctx := context.Background()

	env.gen.queue(analysisReply, nil)
	batch, err := env.tracker.AnalyzeImage(ctx, authed(&AnalyzeImageRequest{Image: testImage()}, token))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}
	if len(batch.Msg.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(batch.Msg.Items))
	}

	req := env.gen.calls()[0]
	if req.ResponseSchema == nil {
		t.Error("analysis must request a response schema")
	}
	if parts := req.Contents[0].Parts; len(parts) != 2 || parts[0].InlineData == nil {
		t.Errorf("unexpected analysis parts %+v", parts)
	}

	banana := itemByName(t, batch.Msg.Items, "банан")
	cookie := itemByName(t, batch.Msg.Items, "печенье")
	if len(batch.Msg.NeedsConfirmation) != 1 || batch.Msg.NeedsConfirmation[0] != cookie.ID {
		t.Errorf("needsConfirmation = %v, want [%s]", batch.Msg.NeedsConfirmation, cookie.ID)
	}

	edited, err := env.tracker.SetPortion(ctx, authed(&SetPortionRequest{ItemID: banana.ID, Grams: 200}, token))
	if err != nil {
		t.Fatalf("SetPortion failed: %v", err)
	}
	// 180 kcal of banana plus 135 kcal of cookie.
	if math.Abs(edited.Msg.Totals.Kcal-315) > 0.01 {
		t.Errorf("totals kcal = %.2f, want 315", edited.Msg.Totals.Kcal)
	}

	_, err = env.tracker.SaveMeal(ctx, authed(&SaveMealRequest{}, token))
	assertCode(t, err, connect.CodeFailedPrecondition)

	if _, err := env.tracker.SetIncluded(ctx, authed(&SetIncludedRequest{ItemID: cookie.ID, Included: false}, token)); err != nil {
		t.Fatalf("SetIncluded failed: %v", err)
	}

	saved, err := env.tracker.SaveMeal(ctx, authed(&SaveMealRequest{}, token))
	if err != nil {
		t.Fatalf("SaveMeal failed: %v", err)
	}
	meal := saved.Msg.Meal
	if len(meal.Items) != 1 || meal.Items[0].Name != "банан" {
		t.Errorf("meal items = %+v", meal.Items)
	}
	if math.Abs(meal.Totals.Kcal-180) > 0.01 || math.Abs(meal.Totals.Carbs-42) > 0.01 {
		t.Errorf("meal totals = %+v", meal.Totals)
	}
	if meal.ImageDigest == "" {
		t.Error("expected the photo to be stored with the meal")
	}

	after, err := env.tracker.GetBatch(ctx, authed(&GetBatchRequest{}, token))
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if len(after.Msg.Items) != 0 {
		t.Errorf("batch not cleared after save: %d items", len(after.Msg.Items))
	}

	list, err := env.tracker.ListMeals(ctx, authed(&ListMealsRequest{}, token))
	if err != nil {
		t.Fatalf("ListMeals failed: %v", err)
	}
	if len(list.Msg.Meals) != 1 {
		t.Fatalf("expected 1 meal, got %d", len(list.Msg.Meals))
	}

	summary, err := env.tracker.GetDailySummary(ctx, authed(&GetDailySummaryRequest{}, token))
	if err != nil {
		t.Fatalf("GetDailySummary failed: %v", err)
	}
	if summary.Msg.Meals != 1 || math.Abs(summary.Msg.Totals.Kcal-180) > 0.01 {
		t.Errorf("unexpected summary %+v", summary.Msg)
	}
	if summary.Msg.Progress.Kcal != 13 {
		t.Errorf("kcal progress = %d, want 13", summary.Msg.Progress.Kcal)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.tracker.DeleteMeal(ctx, authed(&DeleteMealRequest{MealID: meal.ID}, token)); err != nil {
			t.Fatalf("DeleteMeal #%d failed: %v", i+1, err)
		}
	}
	list, err = env.tracker.ListMeals(ctx, authed(&ListMealsRequest{}, token))
	if err != nil {
		t.Fatalf("ListMeals failed: %v", err)
	}
	if len(list.Msg.Meals) != 0 {
		t.Errorf("expected empty history, got %d", len(list.Msg.Meals))
	}
}

func TestSaveMealConfirmLowConfidence(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	ctx := context.Background()

	env.gen.queue(analysisReply, nil)
	if _, err := env.tracker.AnalyzeImage(ctx, authed(&AnalyzeImageRequest{Image: testImage()}, token)); err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}

	saved, err := env.tracker.SaveMeal(ctx, authed(&SaveMealRequest{ConfirmLowConfidence: true}, token))
	if err != nil {
		t.Fatalf("SaveMeal failed: %v", err)
	}
	if len(saved.Msg.Meal.Items) != 2 {
		t.Errorf("expected both items saved, got %d", len(saved.Msg.Meal.Items))
	}
}

func TestAnalyzeImageErrors(t *testing.T) {
	tests := []struct {
		name  string
		image string
		reply string
		err   error
		want  connect.Code
	}{
		{"missing image", "", "", nil, connect.CodeInvalidArgument},
		{"malformed payload", testImage(), `{"items":[{"name":"суп"}]}`, nil, connect.CodeInvalidArgument},
		{"missing credential", testImage(), "", gateway.ErrMissingCredential, connect.CodeInternal},
		{"upstream error", testImage(), "", &gateway.UpstreamError{Status: 500, Body: "boom"}, connect.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			_, token := env.startSession(t)
			env.gen.queue(tt.reply, tt.err)

			_, err := env.tracker.AnalyzeImage(context.Background(), authed(&AnalyzeImageRequest{Image: tt.image}, token))
			assertCode(t, err, tt.want)

			batch, err := env.tracker.GetBatch(context.Background(), authed(&GetBatchRequest{}, token))
			if err != nil {
				t.Fatalf("GetBatch failed: %v", err)
			}
			if len(batch.Msg.Items) != 0 {
				t.Errorf("failed analysis must not change the batch")
			}
		})
	}
}

func TestBatchEditErrors(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)
	ctx := context.Background()

	env.gen.queue(analysisReply, nil)
	batch, err := env.tracker.AnalyzeImage(ctx, authed(&AnalyzeImageRequest{Image: testImage()}, token))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}
	banana := itemByName(t, batch.Msg.Items, "банан")

	_, err = env.tracker.SetPortion(ctx, authed(&SetPortionRequest{ItemID: banana.ID, Grams: -5}, token))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = env.tracker.SetPortion(ctx, authed(&SetPortionRequest{ItemID: "nope", Grams: 10}, token))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.tracker.SetIncluded(ctx, authed(&SetIncludedRequest{ItemID: "nope"}, token))
	assertCode(t, err, connect.CodeNotFound)

	clamped, err := env.tracker.SetPortion(ctx, authed(&SetPortionRequest{ItemID: banana.ID, Grams: 5000}, token))
	if err != nil {
		t.Fatalf("SetPortion failed: %v", err)
	}
	if got := itemByName(t, clamped.Msg.Items, "банан").PortionGrams; got != 2000 {
		t.Errorf("portion = %v, want clamped to 2000", got)
	}
}

func TestSaveMealEmptySelection(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	_, err := env.tracker.SaveMeal(context.Background(), authed(&SaveMealRequest{}, token))
	assertCode(t, err, connect.CodeFailedPrecondition)

	list, err := env.tracker.ListMeals(context.Background(), authed(&ListMealsRequest{}, token))
	if err != nil {
		t.Fatalf("ListMeals failed: %v", err)
	}
	if len(list.Msg.Meals) != 0 {
		t.Errorf("no meal may be appended on empty selection")
	}
}

func TestGetDailySummaryDate(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.startSession(t)

	_, err := env.tracker.GetDailySummary(context.Background(), authed(&GetDailySummaryRequest{Date: "19.10.2025"}, token))
	assertCode(t, err, connect.CodeInvalidArgument)

	yesterday := time.Now().AddDate(0, 0, -1).Format(time.DateOnly)
	resp, err := env.tracker.GetDailySummary(context.Background(), authed(&GetDailySummaryRequest{Date: yesterday}, token))
	if err != nil {
		t.Fatalf("GetDailySummary failed: %v", err)
	}
	if resp.Msg.Date != yesterday || resp.Msg.Meals != 0 || resp.Msg.Targets.Kcal != 1400 {
		t.Errorf("unexpected summary %+v", resp.Msg)
	}
}
