package models

import "time"

// PostGeneratedEvent is published after a post has been generated.
type PostGeneratedEvent struct {
	GenerationID int       `json:"generation_id,omitempty"`
	Title        string    `json:"title"`
	Hashtags     []string  `json:"hashtags"`
	ImageCount   int       `json:"image_count"`
	TotalCost    float64   `json:"total_cost"`
	GeneratedAt  time.Time `json:"generated_at"`
}
