// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps PRAGMA foreign_keys in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMeal persists a new meal, its items and its image in one transaction.
func (s *SQLiteStore) SaveMeal(ctx context.Context, meal *models.SavedMeal, image *models.Image) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	if meal.CreatedAt.IsZero() {
		meal.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if image != nil {
		// Same photo saved twice is stored once.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO images (session_id, digest, mime_type, data) VALUES (?, ?, ?, ?)
			 ON CONFLICT (session_id, digest) DO NOTHING`,
			meal.SessionID, image.Digest, image.MIMEType, image.Data,
		)
		if err != nil {
			return fmt.Errorf("failed to insert image: %w", err)
		}
		meal.ImageDigest = image.Digest
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meals (id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meal.ID, meal.SessionID, meal.CreatedAt.UnixMilli(), meal.ImageDigest,
		meal.Totals.Kcal, meal.Totals.Protein, meal.Totals.Fat, meal.Totals.Carbs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	for i := range meal.Items {
		item := &meal.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meal_items (meal_id, position, id, name, portion_grams,
			   kcal_per_100g, protein_per_100g, fat_per_100g, carbs_per_100g, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meal.ID, i, item.ID, item.Name, item.PortionGrams,
			item.KcalPer100g, item.ProteinPer100g, item.FatPer100g, item.CarbsPer100g, string(item.Confidence),
		)
		if err != nil {
			return fmt.Errorf("failed to insert meal item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetMeal retrieves a meal by ID, including its items.
func (s *SQLiteStore) GetMeal(ctx context.Context, sessionID, mealID string) (*models.SavedMeal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g
		 FROM meals WHERE session_id = ? AND id = ?`,
		sessionID, mealID,
	)
	meal, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}

	if err := s.loadItems(ctx, []*models.SavedMeal{meal}); err != nil {
		return nil, err
	}
	return meal, nil
}

// ListMeals returns the session's meals newest first.
func (s *SQLiteStore) ListMeals(ctx context.Context, sessionID string, filter storage.MealFilter) ([]*models.SavedMeal, error) {
	query := `SELECT id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g
		FROM meals WHERE session_id = ?`
	args := []any{sessionID}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UnixMilli())
	}
	if !filter.Until.IsZero() {
		query += " AND created_at < ?"
		args = append(args, filter.Until.UnixMilli())
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	meals := []*models.SavedMeal{}
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}
	rows.Close()

	if err := s.loadItems(ctx, meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// DeleteMeal removes a meal and any image no other meal of the session uses.
func (s *SQLiteStore) DeleteMeal(ctx context.Context, sessionID, mealID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM meals WHERE session_id = ? AND id = ?", sessionID, mealID); err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if err := deleteOrphanImages(ctx, tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// PruneMeals keeps the newest keep meals of a session.
func (s *SQLiteStore) PruneMeals(ctx context.Context, sessionID string, keep int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM meals WHERE session_id = ? AND id NOT IN (
		   SELECT id FROM meals WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		 )`,
		sessionID, sessionID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune meals: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned meals: %w", err)
	}
	if err := deleteOrphanImages(ctx, tx, sessionID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(removed), nil
}

// GetImage returns an image by digest.
func (s *SQLiteStore) GetImage(ctx context.Context, sessionID, digest string) (*models.Image, error) {
	img := &models.Image{Digest: digest}
	err := s.db.QueryRowContext(ctx,
		"SELECT mime_type, data FROM images WHERE session_id = ? AND digest = ?",
		sessionID, digest,
	).Scan(&img.MIMEType, &img.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", digest, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeal(row scanner) (*models.SavedMeal, error) {
	meal := &models.SavedMeal{}
	var createdAt int64
	err := row.Scan(&meal.ID, &meal.SessionID, &createdAt, &meal.ImageDigest,
		&meal.Totals.Kcal, &meal.Totals.Protein, &meal.Totals.Fat, &meal.Totals.Carbs)
	if err != nil {
		return nil, err
	}
	meal.CreatedAt = time.UnixMilli(createdAt)
	return meal, nil
}

// loadItems fills Items for the given meals with a single query.
func (s *SQLiteStore) loadItems(ctx context.Context, meals []*models.SavedMeal) error {
	if len(meals) == 0 {
		return nil
	}
	byID := make(map[string]*models.SavedMeal, len(meals))
	placeholders := make([]string, len(meals))
	args := make([]any, len(meals))
	for i, m := range meals {
		byID[m.ID] = m
		m.Items = []models.RecognizedItem{}
		placeholders[i] = "?"
		args[i] = m.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT meal_id, id, name, portion_grams, kcal_per_100g, protein_per_100g,
		   fat_per_100g, carbs_per_100g, confidence
		 FROM meal_items WHERE meal_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY meal_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to query meal items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mealID, confidence string
		item := models.RecognizedItem{Included: true}
		if err := rows.Scan(&mealID, &item.ID, &item.Name, &item.PortionGrams,
			&item.KcalPer100g, &item.ProteinPer100g, &item.FatPer100g, &item.CarbsPer100g, &confidence); err != nil {
			return fmt.Errorf("failed to scan meal item: %w", err)
		}
		item.Confidence = models.Confidence(confidence)
		if m, ok := byID[mealID]; ok {
			m.Items = append(m.Items, item)
		}
	}
	return rows.Err()
}

func deleteOrphanImages(ctx context.Context, tx *sql.Tx, sessionID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM images WHERE session_id = ? AND digest NOT IN (
		   SELECT image_digest FROM meals WHERE session_id = ? AND image_digest != ''
		 )`,
		sessionID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete orphan images: %w", err)
	}
	return nil
}
