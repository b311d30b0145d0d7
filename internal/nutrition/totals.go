// Package nutrition reconciles model-recognized food items into user-confirmed
// meals and aggregates them into per-meal and per-day totals.
package nutrition

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/mamachef/internal/models"
)

// MaxPortionGrams is the upper bound for a single item portion.
const MaxPortionGrams = 2000.0

// Energy density of macronutrients, kcal per gram.
const (
	KcalPerGramProtein = 4.0
	KcalPerGramFat     = 9.0
	KcalPerGramCarbs   = 4.0
)

var (
	ErrInvalidPortion  = errors.New("portion must be a finite non-negative number")
	ErrInvalidNutrient = errors.New("per-100g value must be a finite non-negative number")
)

// DefaultTargets returns the reference daily intake of the default child profile.
func DefaultTargets() models.Targets {
	return models.Targets{Kcal: 1400, Protein: 40, Fat: 50, Carbs: 190}
}

// ValidatePortion rejects NaN, infinities and negative values and clamps
// anything above MaxPortionGrams.
func ValidatePortion(grams float64) (float64, error) {
	if !finiteNonNegative(grams) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPortion, grams)
	}
	return math.Min(grams, MaxPortionGrams), nil
}

// ValidateNutrients checks the per-100g values of an item. They come from the
// model or an outside caller and never reach totals unchecked.
func ValidateNutrients(item models.RecognizedItem) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"kcalPer100g", item.KcalPer100g},
		{"proteinPer100g", item.ProteinPer100g},
		{"fatPer100g", item.FatPer100g},
		{"carbsPer100g", item.CarbsPer100g},
	}
	for _, f := range fields {
		if !finiteNonNegative(f.value) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidNutrient, f.name, f.value)
		}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ComputeTotals sums value × portion/100 over the included items.
// The result is not rounded.
func ComputeTotals(items []models.RecognizedItem) models.Totals {
	var t models.Totals
	for _, item := range items {
		if !item.Included {
			continue
		}
		factor := item.PortionGrams / 100
		t.Kcal += item.KcalPer100g * factor
		t.Protein += item.ProteinPer100g * factor
		t.Fat += item.FatPer100g * factor
		t.Carbs += item.CarbsPer100g * factor
	}
	return t
}

// SumMeals recomputes the combined totals of meals from their items.
func SumMeals(meals []*models.SavedMeal) models.Totals {
	var t models.Totals
	for _, m := range meals {
		mt := ComputeTotals(m.Items)
		t.Kcal += mt.Kcal
		t.Protein += mt.Protein
		t.Fat += mt.Fat
		t.Carbs += mt.Carbs
	}
	return t
}

// PercentOfTarget returns round(current/target × 100) capped at 100.
// A non-positive target yields 0.
func PercentOfTarget(current, target float64) int {
	if target <= 0 {
		return 0
	}
	p := math.Round(current / target * 100)
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// Progress is the percent of each daily target reached.
type Progress struct {
	Kcal    int `json:"kcal"`
	Protein int `json:"protein_g"`
	Fat     int `json:"fat_g"`
	Carbs   int `json:"carbs_g"`
}

// ProgressOf computes percent-of-target for every nutrient.
func ProgressOf(t models.Totals, targets models.Targets) Progress {
	return Progress{
		Kcal:    PercentOfTarget(t.Kcal, targets.Kcal),
		Protein: PercentOfTarget(t.Protein, targets.Protein),
		Fat:     PercentOfTarget(t.Fat, targets.Fat),
		Carbs:   PercentOfTarget(t.Carbs, targets.Carbs),
	}
}

// MacroCalories splits energy by macronutrient, used for the donut chart.
type MacroCalories struct {
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// MacroCaloriesOf converts macro grams into kcal.
func MacroCaloriesOf(t models.Totals) MacroCalories {
	return MacroCalories{
		Protein: t.Protein * KcalPerGramProtein,
		Fat:     t.Fat * KcalPerGramFat,
		Carbs:   t.Carbs * KcalPerGramCarbs,
	}
}
