package models

import (
	"time"

	"github.com/lib/pq"
)

type Generation struct {
	ID          int              `json:"id" db:"id"`
	Status      GenerationStatus `json:"status" db:"status"`
	ImageCount  int              `json:"image_count" db:"image_count"`
	UserInput   string           `json:"user_input" db:"user_input"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	Hashtags    pq.StringArray   `json:"hashtags" db:"hashtags"`
	TotalCost   float64          `json:"total_cost" db:"total_cost"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)
