package models

import "time"

// Confidence is the bucketed certainty the model reported for a recognized item.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RecognizedItem is one food item recognized on a photo.
// Only PortionGrams and Included are user-editable; the per-100g values are
// fixed once the item is ingested.
type RecognizedItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// Name is the dish or ingredient name as returned by the model.
	Name string `json:"name"`

	// PortionGrams is the estimated (or user-corrected) portion weight.
	PortionGrams float64 `json:"portionGrams"`

	KcalPer100g    float64 `json:"kcalPer100g"`
	ProteinPer100g float64 `json:"proteinPer100g"`
	FatPer100g     float64 `json:"fatPer100g"`
	CarbsPer100g   float64 `json:"carbsPer100g"`

	// Confidence is low, medium or high.
	Confidence Confidence `json:"confidence"`

	// Included marks the item as part of the meal to be saved.
	Included bool `json:"included"`
}

// Totals holds aggregated energy and macros.
// Values keep full precision; round only when displaying.
type Totals struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein_g"`
	Fat     float64 `json:"fat_g"`
	Carbs   float64 `json:"carbs_g"`
}

// Targets is the daily reference intake used for percent-of-target.
type Targets struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein_g"`
	Fat     float64 `json:"fat_g"`
	Carbs   float64 `json:"carbs_g"`
}

// SavedMeal is a frozen snapshot of a committed recognition batch.
// It is never updated, only deleted.
type SavedMeal struct {
	// ID is the unique identifier for the meal (UUID format).
	ID string `json:"id"`

	// SessionID scopes the meal to the session that saved it.
	SessionID string `json:"sessionId"`

	// CreatedAt is when the meal was committed.
	CreatedAt time.Time `json:"createdAt"`

	// ImageDigest references the stored photo, empty when the meal has none.
	ImageDigest string `json:"imageDigest,omitempty"`

	// Items are the included items at commit time, in batch order.
	Items []RecognizedItem `json:"items"`

	// Totals are computed once at commit time from Items.
	Totals Totals `json:"totals"`
}

// Image is a stored photo, addressed by the digest of its bytes.
type Image struct {
	Digest   string `json:"digest"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}
