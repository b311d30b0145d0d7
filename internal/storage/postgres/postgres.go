// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		image_digest TEXT NOT NULL DEFAULT '',
		kcal DOUBLE PRECISION NOT NULL,
		protein_g DOUBLE PRECISION NOT NULL,
		fat_g DOUBLE PRECISION NOT NULL,
		carbs_g DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meal_items (
		meal_id TEXT NOT NULL REFERENCES meals(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		portion_grams DOUBLE PRECISION NOT NULL,
		kcal_per_100g DOUBLE PRECISION NOT NULL,
		protein_per_100g DOUBLE PRECISION NOT NULL,
		fat_per_100g DOUBLE PRECISION NOT NULL,
		carbs_per_100g DOUBLE PRECISION NOT NULL,
		confidence TEXT NOT NULL,
		PRIMARY KEY (meal_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		session_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		data BYTEA NOT NULL,
		PRIMARY KEY (session_id, digest)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meals_session_created ON meals(session_id, created_at)`,
}

// PostgresStore implements storage.Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL, verifies connectivity and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) SaveMeal(ctx context.Context, meal *models.SavedMeal, image *models.Image) error {
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
	defer func() { _ = tx.Rollback() }()

	if image != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO images (session_id, digest, mime_type, data) VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, digest) DO NOTHING
		`, meal.SessionID, image.Digest, image.MIMEType, image.Data)
		if err != nil {
			return fmt.Errorf("failed to insert image: %w", err)
		}
		meal.ImageDigest = image.Digest
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meals (id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, meal.ID, meal.SessionID, meal.CreatedAt.UnixMilli(), meal.ImageDigest,
		meal.Totals.Kcal, meal.Totals.Protein, meal.Totals.Fat, meal.Totals.Carbs)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	for i := range meal.Items {
		item := &meal.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO meal_items (meal_id, position, id, name, portion_grams,
				kcal_per_100g, protein_per_100g, fat_per_100g, carbs_per_100g, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, meal.ID, i, item.ID, item.Name, item.PortionGrams,
			item.KcalPer100g, item.ProteinPer100g, item.FatPer100g, item.CarbsPer100g, string(item.Confidence))
		if err != nil {
			return fmt.Errorf("failed to insert meal item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMeal(ctx context.Context, sessionID, mealID string) (*models.SavedMeal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g
		FROM meals WHERE session_id = $1 AND id = $2
	`, sessionID, mealID)
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

func (s *PostgresStore) ListMeals(ctx context.Context, sessionID string, filter storage.MealFilter) ([]*models.SavedMeal, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, session_id, created_at, image_digest, kcal, protein_g, fat_g, carbs_g
		FROM meals WHERE session_id = $1`)
	args := []any{sessionID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if !filter.Since.IsZero() {
		b.WriteString(" AND created_at >= " + arg(filter.Since.UnixMilli()))
	}
	if !filter.Until.IsZero() {
		b.WriteString(" AND created_at < " + arg(filter.Until.UnixMilli()))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
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

	if err := s.loadItems(ctx, meals); err != nil {
		return nil, err
	}
	return meals, nil
}

func (s *PostgresStore) DeleteMeal(ctx context.Context, sessionID, mealID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE session_id = $1 AND id = $2`, sessionID, mealID); err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if err := deleteOrphanImages(ctx, tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) PruneMeals(ctx context.Context, sessionID string, keep int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM meals WHERE session_id = $1 AND id NOT IN (
			SELECT id FROM meals WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		)
	`, sessionID, keep)
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

func (s *PostgresStore) GetImage(ctx context.Context, sessionID, digest string) (*models.Image, error) {
	img := &models.Image{Digest: digest}
	err := s.db.QueryRowContext(ctx,
		`SELECT mime_type, data FROM images WHERE session_id = $1 AND digest = $2`,
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
	if err := row.Scan(&meal.ID, &meal.SessionID, &createdAt, &meal.ImageDigest,
		&meal.Totals.Kcal, &meal.Totals.Protein, &meal.Totals.Fat, &meal.Totals.Carbs); err != nil {
		return nil, err
	}
	meal.CreatedAt = time.UnixMilli(createdAt)
	return meal, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, meals []*models.SavedMeal) error {
	if len(meals) == 0 {
		return nil
	}
	byID := make(map[string]*models.SavedMeal, len(meals))
	ids := make([]string, len(meals))
	for i, m := range meals {
		byID[m.ID] = m
		m.Items = []models.RecognizedItem{}
		ids[i] = m.ID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT meal_id, id, name, portion_grams, kcal_per_100g, protein_per_100g,
			fat_per_100g, carbs_per_100g, confidence
		FROM meal_items WHERE meal_id = ANY($1)
		ORDER BY meal_id, position
	`, ids)
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
	_, err := tx.ExecContext(ctx, `
		DELETE FROM images WHERE session_id = $1 AND digest NOT IN (
			SELECT image_digest FROM meals WHERE session_id = $1 AND image_digest <> ''
		)
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete orphan images: %w", err)
	}
	return nil
}
