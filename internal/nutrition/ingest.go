package nutrition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/mmynk/mamachef/internal/models"
)

var ErrMalformedPayload = errors.New("malformed recognition payload")

var numericFields = []string{"portionGrams", "kcalPer100g", "proteinPer100g", "fatPer100g", "carbsPer100g"}

// Ingest validates a recognition reply of the form {"items": [...]} and turns
// it into editable items. Every item must carry a name, the portion, the four
// per-100g values and a confidence of low, medium or high. A single bad item
// fails the whole batch with ErrMalformedPayload.
//
// Accepted items get a fresh ID and start included. Portions above
// MaxPortionGrams are clamped.
func Ingest(payload []byte) ([]models.RecognizedItem, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedPayload)
	}
	list := gjson.GetBytes(payload, "items")
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: missing items array", ErrMalformedPayload)
	}

	raw := list.Array()
	items := make([]models.RecognizedItem, 0, len(raw))
	for i, r := range raw {
		item, err := ingestItem(r)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedPayload, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func ingestItem(r gjson.Result) (models.RecognizedItem, error) {
	if !r.IsObject() {
		return models.RecognizedItem{}, fmt.Errorf("not an object")
	}

	name := r.Get("name")
	if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
		return models.RecognizedItem{}, fmt.Errorf("missing name")
	}

	values := make(map[string]float64, len(numericFields))
	for _, field := range numericFields {
		v := r.Get(field)
		if v.Type != gjson.Number {
			return models.RecognizedItem{}, fmt.Errorf("missing %s", field)
		}
		values[field] = v.Num
	}

	conf := r.Get("confidence")
	if conf.Type != gjson.String {
		return models.RecognizedItem{}, fmt.Errorf("missing confidence")
	}
	confidence, err := parseConfidence(conf.Str)
	if err != nil {
		return models.RecognizedItem{}, err
	}

	portion, err := ValidatePortion(values["portionGrams"])
	if err != nil {
		return models.RecognizedItem{}, err
	}

	item := models.RecognizedItem{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(name.Str),
		PortionGrams:   portion,
		KcalPer100g:    values["kcalPer100g"],
		ProteinPer100g: values["proteinPer100g"],
		FatPer100g:     values["fatPer100g"],
		CarbsPer100g:   values["carbsPer100g"],
		Confidence:     confidence,
		Included:       true,
	}
	if err := ValidateNutrients(item); err != nil {
		return models.RecognizedItem{}, err
	}
	return item, nil
}

func parseConfidence(s string) (models.Confidence, error) {
	switch c := models.Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case models.ConfidenceLow, models.ConfidenceMedium, models.ConfidenceHigh:
		return c, nil
	default:
		return "", fmt.Errorf("unknown confidence %q", s)
	}
}
