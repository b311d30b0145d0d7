// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/mamachef/internal/models"
)

// ErrNotFound is returned when a meal or image does not exist in the session.
var ErrNotFound = errors.New("not found")

// MealFilter narrows ListMeals. Zero values mean "no bound".
type MealFilter struct {
	// Since and Until bound CreatedAt as [Since, Until).
	Since time.Time
	Until time.Time

	// Limit caps the number of meals returned.
	Limit int
}

// Store defines the interface for meal history storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the tracker or service layer. Every method is scoped to
// a session ID.
type Store interface {
	// SaveMeal persists a new meal with its items and, when image is not nil,
	// the photo it was recognized from. The meal.ID and meal.CreatedAt fields
	// are populated when empty, and meal.ImageDigest is set from the image.
	SaveMeal(ctx context.Context, meal *models.SavedMeal, image *models.Image) error

	// GetMeal retrieves a meal by ID. Returns ErrNotFound if absent.
	GetMeal(ctx context.Context, sessionID, mealID string) (*models.SavedMeal, error)

	// ListMeals returns meals newest first.
	ListMeals(ctx context.Context, sessionID string, filter MealFilter) ([]*models.SavedMeal, error)

	// DeleteMeal removes a meal. Deleting a missing meal is not an error.
	DeleteMeal(ctx context.Context, sessionID, mealID string) error

	// PruneMeals keeps the newest keep meals of the session and deletes the
	// rest, returning how many were removed.
	PruneMeals(ctx context.Context, sessionID string, keep int) (int, error)

	// GetImage returns an image by digest. Returns ErrNotFound if absent.
	GetImage(ctx context.Context, sessionID, digest string) (*models.Image, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
