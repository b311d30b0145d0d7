package contract

import (
	"github.com/tidwall/gjson"

	"github.com/mmynk/mamachef/internal/models"
)

// Confidence thresholds for numeric scores reported in the JSON block.
const (
	HighConfidenceThreshold   = 0.75
	MediumConfidenceThreshold = 0.45
)

// WarningType classifies a warning attached to a reply.
type WarningType string

const (
	WarningEstimate WarningType = "ESTIMATE"
	WarningAllergen WarningType = "ALLERGEN"
	WarningChoking  WarningType = "CHOKING"
)

// Insights is the machine-readable part of a chat reply.
type Insights struct {
	Mode string `json:"mode,omitempty"`

	OverallConfidence float64           `json:"overallConfidence"`
	ConfidenceBucket  models.Confidence `json:"confidenceBucket,omitempty"`
	VisionItems       []VisionItem      `json:"visionItems,omitempty"`
	Portion           *PortionEstimate  `json:"portion,omitempty"`

	PerMeal        *models.Totals `json:"perMeal,omitempty"`
	PercentOfDaily *models.Totals `json:"percentOfDaily,omitempty"`
	Warnings       []Warning      `json:"warnings,omitempty"`
	NextQuestions  []string       `json:"nextQuestions,omitempty"`
	Actions        []Action       `json:"actions,omitempty"`
}

// VisionItem is one label the model saw on the photo.
type VisionItem struct {
	Label      string            `json:"label"`
	Confidence float64           `json:"confidence"`
	Bucket     models.Confidence `json:"bucket"`
}

// PortionEstimate is a portion weight in grams with its plausible range.
type PortionEstimate struct {
	Estimate float64 `json:"estimate"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

type Warning struct {
	Type WarningType `json:"type"`
	Text string      `json:"text"`
}

type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NeedsConfirmation reports whether any recognized label is low confidence.
// Low-confidence recognitions must not be saved without user confirmation.
func (i *Insights) NeedsConfirmation() bool {
	if i.ConfidenceBucket == models.ConfidenceLow {
		return true
	}
	for _, it := range i.VisionItems {
		if it.Bucket == models.ConfidenceLow {
			return true
		}
	}
	return false
}

// BucketConfidence maps a numeric score in [0, 1] onto low, medium or high.
func BucketConfidence(score float64) models.Confidence {
	switch {
	case score >= HighConfidenceThreshold:
		return models.ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// ParseInsights reads the fenced JSON block of a chat reply. Parsing is best
// effort: unknown fields are ignored and missing sections stay empty. It
// returns false only when the block is not a JSON object.
func ParseInsights(block string) (*Insights, bool) {
	if !gjson.Valid(block) {
		return nil, false
	}
	doc := gjson.Parse(block)
	if !doc.IsObject() {
		return nil, false
	}

	ins := &Insights{Mode: doc.Get("mode").String()}

	vision := doc.Get("vision_analysis")
	if oc := vision.Get("overall_confidence"); oc.Exists() {
		ins.OverallConfidence = oc.Float()
		ins.ConfidenceBucket = BucketConfidence(ins.OverallConfidence)
	}
	vision.Get("items").ForEach(func(_, item gjson.Result) bool {
		c := item.Get("confidence").Float()
		ins.VisionItems = append(ins.VisionItems, VisionItem{
			Label:      item.Get("label").String(),
			Confidence: c,
			Bucket:     BucketConfidence(c),
		})
		return true
	})
	if p := vision.Get("portion_g"); p.IsObject() {
		ins.Portion = &PortionEstimate{
			Estimate: p.Get("estimate").Float(),
			Min:      p.Get("min").Float(),
			Max:      p.Get("max").Float(),
		}
	}

	ins.PerMeal = totalsAt(doc, "nutrition.per_meal")
	ins.PercentOfDaily = totalsAt(doc, "nutrition.percent_of_daily")

	doc.Get("warnings").ForEach(func(_, w gjson.Result) bool {
		ins.Warnings = append(ins.Warnings, Warning{
			Type: WarningType(w.Get("type").String()),
			Text: w.Get("text").String(),
		})
		return true
	})
	doc.Get("next_questions").ForEach(func(_, q gjson.Result) bool {
		if s := q.String(); s != "" {
			ins.NextQuestions = append(ins.NextQuestions, s)
		}
		return true
	})
	doc.Get("actions").ForEach(func(_, a gjson.Result) bool {
		ins.Actions = append(ins.Actions, Action{
			ID:    a.Get("id").String(),
			Label: a.Get("label").String(),
		})
		return true
	})

	return ins, true
}

func totalsAt(doc gjson.Result, path string) *models.Totals {
	r := doc.Get(path)
	if !r.IsObject() {
		return nil
	}
	return &models.Totals{
		Kcal:    r.Get("kcal").Float(),
		Protein: r.Get("protein_g").Float(),
		Fat:     r.Get("fat_g").Float(),
		Carbs:   r.Get("carbs_g").Float(),
	}
}
