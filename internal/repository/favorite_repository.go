package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"geomodel/internal/models"
)

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Toggle adds or removes the (model, user) pair and returns the new state
// with the resulting count.
func (r *FavoriteRepository) Toggle(ctx context.Context, modelID, userID string) (bool, int, error) {
	const insert = `
		INSERT INTO model_favorites (model_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (model_id, user_id) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, insert, modelID, userID)
	if err != nil {
		return false, 0, err
	}

	favorited := cmd.RowsAffected() > 0
	if !favorited {
		const remove = `DELETE FROM model_favorites WHERE model_id = $1 AND user_id = $2`
		if _, err := r.pool.Exec(ctx, remove, modelID, userID); err != nil {
			return false, 0, err
		}
	}

	count, err := r.Count(ctx, modelID)
	if err != nil {
		return false, 0, err
	}
	return favorited, count, nil
}

func (r *FavoriteRepository) Count(ctx context.Context, modelID string) (int, error) {
	const query = `SELECT COUNT(*) FROM model_favorites WHERE model_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, modelID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Clear drops every favorite pointing at the model, ahead of its deletion.
func (r *FavoriteRepository) Clear(ctx context.Context, modelID string) error {
	const query = `DELETE FROM model_favorites WHERE model_id = $1`
	_, err := r.pool.Exec(ctx, query, modelID)
	return err
}

// ClearByUser drops every favorite a user placed, ahead of account deletion.
func (r *FavoriteRepository) ClearByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM model_favorites WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]models.Model, error) {
	query := `SELECT ` + qualifiedModelColumns("m") + `
		FROM models m
		JOIN model_favorites f ON f.model_id = m.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanModels(rows)
}
