package nutrition

import (
	"errors"
	"fmt"

	"github.com/mmynk/mamachef/internal/models"
)

var ErrItemNotFound = errors.New("item not found in batch")

// Batch is the set of items recognized on one photo, editable until saved.
// Batch is not safe for concurrent use; callers serialize access per session.
type Batch struct {
	items []models.RecognizedItem
	image *models.InlineData
}

// NewBatch wraps freshly ingested items and the photo they came from.
func NewBatch(items []models.RecognizedItem, image *models.InlineData) *Batch {
	return &Batch{items: items, image: image}
}

// Items returns a copy of the items in recognition order.
func (b *Batch) Items() []models.RecognizedItem {
	out := make([]models.RecognizedItem, len(b.items))
	copy(out, b.items)
	return out
}

// Image returns the analysed photo, nil when unknown.
func (b *Batch) Image() *models.InlineData {
	return b.image
}

// Len returns the number of items, included or not.
func (b *Batch) Len() int {
	return len(b.items)
}

// SetPortion updates the portion of one item. Invalid values are rejected and
// leave the item unchanged; values above MaxPortionGrams are clamped.
func (b *Batch) SetPortion(id string, grams float64) error {
	i, err := b.index(id)
	if err != nil {
		return err
	}
	portion, err := ValidatePortion(grams)
	if err != nil {
		return err
	}
	b.items[i].PortionGrams = portion
	return nil
}

// SetIncluded toggles whether an item is part of the meal.
func (b *Batch) SetIncluded(id string, included bool) error {
	i, err := b.index(id)
	if err != nil {
		return err
	}
	b.items[i].Included = included
	return nil
}

// Totals recomputes the totals of the included items.
func (b *Batch) Totals() models.Totals {
	return ComputeTotals(b.items)
}

// NeedsConfirmation lists included items recognized with low confidence.
func (b *Batch) NeedsConfirmation() []models.RecognizedItem {
	var out []models.RecognizedItem
	for _, item := range b.items {
		if item.Included && item.Confidence == models.ConfidenceLow {
			out = append(out, item)
		}
	}
	return out
}

func (b *Batch) index(id string) (int, error) {
	for i := range b.items {
		if b.items[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}
