package service

import (
	"time"

	"github.com/mmynk/mamachef/internal/contract"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/profile"
)

// Turn is the wire form of a conversation turn. Images travel as data URLs.
type Turn struct {
	ID                string    `json:"id"`
	Role              string    `json:"role"`
	Text              string    `json:"text"`
	Image             string    `json:"image,omitempty"`
	Video             string    `json:"video,omitempty"`
	IsShoppingList    bool      `json:"isShoppingList,omitempty"`
	NeedsSubscription bool      `json:"needsSubscription,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func turnFromModel(t models.Turn) Turn {
	return Turn{
		ID:                t.ID,
		Role:              string(t.Role),
		Text:              t.Text,
		Image:             inline.Encode(t.Image),
		Video:             inline.Encode(t.Video),
		IsShoppingList:    t.IsShoppingList,
		NeedsSubscription: t.NeedsSubscription,
		CreatedAt:         t.CreatedAt,
	}
}

func turnsFromModel(turns []models.Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = turnFromModel(t)
	}
	return out
}

// Chat service messages.

type StartSessionRequest struct{}

type StartSessionResponse struct {
	SessionID string         `json:"sessionId"`
	Token     string         `json:"token"`
	Profile   models.Profile `json:"profile"`
	Turns     []Turn         `json:"turns"`
}

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type QuickActionRequest struct {
	Action string `json:"action"`
}

// SendMessageResponse carries both appended turns. Error is set when the
// model call failed; Reply then holds the fallback message.
type SendMessageResponse struct {
	User     Turn               `json:"user"`
	Reply    Turn               `json:"reply"`
	Insights *contract.Insights `json:"insights,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// MediaRequest carries a photo data URL and an instruction. An empty prompt
// falls back to the default for the action.
type MediaRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt,omitempty"`
}

type GetConversationRequest struct{}

type GetConversationResponse struct {
	Profile models.Profile `json:"profile"`
	Turns   []Turn         `json:"turns"`
}

type UpdateProfileRequest = profile.Update

type ProfileResponse struct {
	Profile models.Profile `json:"profile"`
}

type SubscribeRequest struct{}

type SubscribeResponse struct {
	Profile models.Profile `json:"profile"`
	Reply   Turn           `json:"reply"`
}

// Tracker service messages.

type AnalyzeImageRequest struct {
	Image string `json:"image"`
}

type SetPortionRequest struct {
	ItemID string  `json:"itemId"`
	Grams  float64 `json:"grams"`
}

type SetIncludedRequest struct {
	ItemID   string `json:"itemId"`
	Included bool   `json:"included"`
}

type GetBatchRequest struct{}

// BatchResponse is the current recognition batch with its live totals.
type BatchResponse struct {
	Items             []models.RecognizedItem `json:"items"`
	Totals            models.Totals           `json:"totals"`
	NeedsConfirmation []string                `json:"needsConfirmation,omitempty"`
}

func batchResponse(b *nutrition.Batch) *BatchResponse {
	resp := &BatchResponse{
		Items:  b.Items(),
		Totals: b.Totals(),
	}
	for _, item := range b.NeedsConfirmation() {
		resp.NeedsConfirmation = append(resp.NeedsConfirmation, item.ID)
	}
	return resp
}

type SaveMealRequest struct {
	ConfirmLowConfidence bool `json:"confirmLowConfidence"`
}

type SaveMealResponse struct {
	Meal *models.SavedMeal `json:"meal"`
}

type DeleteMealRequest struct {
	MealID string `json:"mealId"`
}

type DeleteMealResponse struct{}

type ListMealsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListMealsResponse struct {
	Meals []*models.SavedMeal `json:"meals"`
}

// GetDailySummaryRequest selects a day as YYYY-MM-DD; empty means today.
type GetDailySummaryRequest struct {
	Date string `json:"date,omitempty"`
}

type GetDailySummaryResponse = nutrition.DailySummary
