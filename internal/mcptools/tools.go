// Package mcptools exposes meal history as MCP tools over plain HTTP.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/mmynk/mamachef/internal/api/respond"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/nutrition"
)

// Tool names.
const (
	ToolGetMeals      = "get_meals"
	ToolDailySummary  = "daily_summary"
	ToolComputeTotals = "compute_totals"
)

const defaultMealLimit = 20

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidParams = errors.New("invalid parameters")
)

type GetMealsParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of meals to return, newest first"`
}

type DailySummaryParams struct {
	Date string `json:"date,omitempty" description:"Day to summarize (YYYY-MM-DD), defaults to today"`
}

// TotalsItem is a recognized item as accepted by compute_totals.
// Included defaults to true when omitted.
type TotalsItem struct {
	Name           string  `json:"name"`
	PortionGrams   float64 `json:"portionGrams"`
	KcalPer100g    float64 `json:"kcalPer100g"`
	ProteinPer100g float64 `json:"proteinPer100g"`
	FatPer100g     float64 `json:"fatPer100g"`
	CarbsPer100g   float64 `json:"carbsPer100g"`
	Included       *bool   `json:"included,omitempty"`
}

type ComputeTotalsParams struct {
	Items []TotalsItem `json:"items" description:"Items with per-100g values and portions"`
}

// TotalsResult is the compute_totals payload.
type TotalsResult struct {
	Totals   models.Totals           `json:"totals"`
	Progress nutrition.Progress      `json:"progress"`
	Macros   nutrition.MacroCalories `json:"macroKcal"`
}

// Handler dispatches CallToolRequests for the authenticated session.
type Handler struct {
	tracker *nutrition.Tracker
	targets models.Targets
	now     func() time.Time
}

func NewHandler(tracker *nutrition.Tracker) *Handler {
	return &Handler{
		tracker: tracker,
		targets: nutrition.DefaultTargets(),
		now:     time.Now,
	}
}

// extractParams converts the Arguments map into a typed params struct.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Call runs one tool for sessionID.
func (h *Handler) Call(ctx context.Context, sessionID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	switch req.Name {
	case ToolGetMeals:
		return h.getMeals(ctx, sessionID, req)
	case ToolDailySummary:
		return h.dailySummary(ctx, sessionID, req)
	case ToolComputeTotals:
		return h.computeTotals(req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}
}

func (h *Handler) getMeals(ctx context.Context, sessionID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = defaultMealLimit
	}

	meals, err := h.tracker.History(ctx, sessionID, params.Limit)
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []*models.SavedMeal{}
	}
	return jsonResult(meals)
}

func (h *Handler) dailySummary(ctx context.Context, sessionID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DailySummaryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	day := h.now()
	if params.Date != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, params.Date, day.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidParams)
		}
		day = parsed
	}

	summary, err := h.tracker.DailySummary(ctx, sessionID, day, h.targets)
	if err != nil {
		return nil, err
	}
	return jsonResult(summary)
}

func (h *Handler) computeTotals(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ComputeTotalsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	items := make([]models.RecognizedItem, 0, len(params.Items))
	for i, it := range params.Items {
		portion, err := nutrition.ValidatePortion(it.PortionGrams)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidParams, i, err)
		}
		item := models.RecognizedItem{
			Name:           it.Name,
			PortionGrams:   portion,
			KcalPer100g:    it.KcalPer100g,
			ProteinPer100g: it.ProteinPer100g,
			FatPer100g:     it.FatPer100g,
			CarbsPer100g:   it.CarbsPer100g,
			Included:       it.Included == nil || *it.Included,
		}
		if err := nutrition.ValidateNutrients(item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidParams, i, err)
		}
		items = append(items, item)
	}

	totals := nutrition.ComputeTotals(items)
	return jsonResult(TotalsResult{
		Totals:   totals,
		Progress: nutrition.ProgressOf(totals, h.targets),
		Macros:   nutrition.MacroCaloriesOf(totals),
	})
}

func jsonResult(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

// ServeHTTP decodes a CallToolRequest body and writes the CallToolResult.
// It expects RequireSessionHTTP to have run.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.WriteError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respond.WriteBadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	result, err := h.Call(r.Context(), sessionID, &request)
	switch {
	case err == nil:
		respond.WriteJSON(w, http.StatusOK, result)
	case errors.Is(err, ErrUnknownTool):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, ErrInvalidParams):
		respond.WriteBadRequest(w, err.Error())
	default:
		slog.Error("MCP tool failed", "tool", request.Name, "session_id", sessionID, "error", err)
		respond.WriteErrorDetails(w, http.StatusInternalServerError, "Server error", err.Error())
	}
}
