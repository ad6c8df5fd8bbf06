package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ngamolsky/Curbd/pkg/models"
)

const (
	CREATE_GENERATIONS_TABLE = `CREATE TABLE IF NOT EXISTS generations(
		id SERIAL PRIMARY KEY,
		status VARCHAR(32) NOT NULL,
		image_count INTEGER NOT NULL,
		user_input TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`
)

type GenerationDatabase interface {
	CreateGeneration(ctx context.Context, imageCount int, userInput string) (int, error)
	CompleteGeneration(ctx context.Context, id int, post models.GeneratedPost, totalCost float64) error
	FailGeneration(ctx context.Context, id int) error
	GetGenerationByID(ctx context.Context, id int) (*models.Generation, error)
}

type GenerationDatabaseImpl struct {
	db *sqlx.DB
}

func NewGenerationDatabase(autoCreate bool, db *sqlx.DB) (*GenerationDatabaseImpl, error) {
	if autoCreate {
		if _, err := db.Exec(CREATE_GENERATIONS_TABLE); err != nil {
			return nil, err
		}
	}
	return &GenerationDatabaseImpl{db: db}, nil
}

func (r *GenerationDatabaseImpl) CreateGeneration(ctx context.Context, imageCount int, userInput string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, "INSERT INTO generations(status, image_count, user_input) VALUES($1, $2, $3) RETURNING id",
		models.GenerationPending, imageCount, userInput).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *GenerationDatabaseImpl) CompleteGeneration(ctx context.Context, id int, post models.GeneratedPost, totalCost float64) error {
	query := "UPDATE generations SET status = $1, title = $2, description = $3, hashtags = $4, total_cost = $5 WHERE id = $6"
	_, err := r.db.ExecContext(ctx, query, models.GenerationCompleted, post.Title, post.Description, pq.Array(post.Hashtags), totalCost, id)
	return err
}

func (r *GenerationDatabaseImpl) FailGeneration(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, "UPDATE generations SET status = $1 WHERE id = $2", models.GenerationFailed, id)
	return err
}

func (r *GenerationDatabaseImpl) GetGenerationByID(ctx context.Context, id int) (*models.Generation, error) {
	generation := &models.Generation{}
	err := r.db.GetContext(ctx, generation, "SELECT * FROM generations WHERE id=$1", id)
	if err != nil {
		return nil, err
	}
	return generation, nil
}
