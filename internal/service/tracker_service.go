package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/profile"
	"github.com/mmynk/mamachef/internal/session"
)

var errInvalidDate = errors.New("date must be YYYY-MM-DD")

// TrackerService implements the Connect TrackerService.
type TrackerService struct {
	sessions *session.Manager
	tracker  *nutrition.Tracker
	gen      gateway.Generator
	opts     Options
	targets  models.Targets
	now      func() time.Time
}

// NewTrackerService creates a TrackerService using the default daily targets.
func NewTrackerService(sessions *session.Manager, tracker *nutrition.Tracker, gen gateway.Generator, opts Options) *TrackerService {
	return &TrackerService{
		sessions: sessions,
		tracker:  tracker,
		gen:      gen,
		opts:     opts,
		targets:  nutrition.DefaultTargets(),
		now:      time.Now,
	}
}

// AnalyzeImage asks the vision model for the items on a photo and replaces
// the session batch with them.
func (s *TrackerService) AnalyzeImage(ctx context.Context, req *connect.Request[AnalyzeImageRequest]) (*connect.Response[BatchResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	image, err := inline.Decode(req.Msg.Image)
	if err != nil {
		return nil, toConnectError(err)
	}

	if err := sess.TryBegin(session.StreamAnalysis); err != nil {
		return nil, toConnectError(err)
	}
	defer sess.End(session.StreamAnalysis)

	text, err := generate(ctx, s.gen, gateway.Request{
		Model: s.opts.VisionModel,
		Contents: []models.Content{{
			Role: conversation.ModelRoleUser,
			Parts: []models.Part{
				{InlineData: image},
				{Text: profile.AnalysisPrompt},
			},
		}},
		Temperature:    s.opts.Temperature,
		ResponseSchema: gateway.AnalysisSchema(),
	}, s.opts)
	if err != nil {
		slog.Error("AnalyzeImage: model call failed", "session_id", sess.ID, "error", err)
		return nil, toConnectError(err)
	}

	items, err := nutrition.Ingest([]byte(text))
	if err != nil {
		slog.Warn("AnalyzeImage: rejected model payload", "session_id", sess.ID, "error", err)
		return nil, toConnectError(err)
	}

	batch := nutrition.NewBatch(items, image)
	resp := batchResponse(batch)
	sess.ReplaceBatch(batch)
	slog.Info("Image analysed", "session_id", sess.ID, "items", len(items))

	return connect.NewResponse(resp), nil
}

// SetPortion edits the portion of one batch item.
func (s *TrackerService) SetPortion(ctx context.Context, req *connect.Request[SetPortionRequest]) (*connect.Response[BatchResponse], error) {
	return s.editBatch(ctx, func(b *nutrition.Batch) error {
		return b.SetPortion(req.Msg.ItemID, req.Msg.Grams)
	})
}

// SetIncluded toggles one batch item.
func (s *TrackerService) SetIncluded(ctx context.Context, req *connect.Request[SetIncludedRequest]) (*connect.Response[BatchResponse], error) {
	return s.editBatch(ctx, func(b *nutrition.Batch) error {
		return b.SetIncluded(req.Msg.ItemID, req.Msg.Included)
	})
}

// GetBatch returns the current batch with live totals.
func (s *TrackerService) GetBatch(ctx context.Context, req *connect.Request[GetBatchRequest]) (*connect.Response[BatchResponse], error) {
	return s.editBatch(ctx, func(b *nutrition.Batch) error { return nil })
}

func (s *TrackerService) editBatch(ctx context.Context, edit func(b *nutrition.Batch) error) (*connect.Response[BatchResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	var resp *BatchResponse
	err = sess.WithBatch(func(b *nutrition.Batch) error {
		if err := edit(b); err != nil {
			return err
		}
		resp = batchResponse(b)
		return nil
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(resp), nil
}

// SaveMeal commits the included items of the batch and clears it.
func (s *TrackerService) SaveMeal(ctx context.Context, req *connect.Request[SaveMealRequest]) (*connect.Response[SaveMealResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	var meal *models.SavedMeal
	err = sess.SaveBatch(func(items []models.RecognizedItem, image *models.InlineData) error {
		var err error
		meal, err = s.tracker.Commit(ctx, sess.ID, items, nutrition.CommitOptions{
			ConfirmLowConfidence: req.Msg.ConfirmLowConfidence,
			Image:                image,
		})
		return err
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SaveMealResponse{Meal: meal}), nil
}

// DeleteMeal removes a meal from history. Unknown ids succeed.
func (s *TrackerService) DeleteMeal(ctx context.Context, req *connect.Request[DeleteMealRequest]) (*connect.Response[DeleteMealResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	if err := s.tracker.Delete(ctx, sess.ID, req.Msg.MealID); err != nil {
		slog.Error("DeleteMeal failed", "session_id", sess.ID, "meal_id", req.Msg.MealID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteMealResponse{}), nil
}

// ListMeals returns the session history, newest first.
func (s *TrackerService) ListMeals(ctx context.Context, req *connect.Request[ListMealsRequest]) (*connect.Response[ListMealsResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	meals, err := s.tracker.History(ctx, sess.ID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	if meals == nil {
		meals = []*models.SavedMeal{}
	}
	return connect.NewResponse(&ListMealsResponse{Meals: meals}), nil
}

// GetDailySummary totals one calendar day against the daily targets.
func (s *TrackerService) GetDailySummary(ctx context.Context, req *connect.Request[GetDailySummaryRequest]) (*connect.Response[GetDailySummaryResponse], error) {
	sess, err := currentSession(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	day := s.now()
	if req.Msg.Date != "" {
		day, err = time.ParseInLocation(time.DateOnly, req.Msg.Date, day.Location())
		if err != nil {
			return nil, toConnectError(fmt.Errorf("%w: %q", errInvalidDate, req.Msg.Date))
		}
	}

	summary, err := s.tracker.DailySummary(ctx, sess.ID, day, s.targets)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(summary), nil
}
