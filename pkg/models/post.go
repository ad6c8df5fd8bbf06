package models

import "strings"

// GeneratedPost is the giveaway post written for a set of images.
type GeneratedPost struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hashtags    []string `json:"hashtags"`
}

// PostGenerationResponse is the body of a successful generate-post call.
type PostGenerationResponse struct {
	Post                GeneratedPost      `json:"post"`
	ImageCount          int                `json:"image_count"`
	TotalCost           float64            `json:"total_cost"`
	ImageProcessingCost float64            `json:"image_processing_cost"`
	PostGenerationCost  float64            `json:"post_generation_cost"`
	TimingInfo          map[string]float64 `json:"timing_info"`
	GenerationID        int                `json:"generation_id,omitempty"`
}

// ValidationError is one field-level violation of a rejected request.
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type HTTPValidationError struct {
	Detail []ValidationError `json:"detail,omitempty"`
}

// NormalizeHashtag makes sure a tag starts with a single leading '#'.
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "#") {
		return tag
	}
	return "#" + tag
}

// NormalizedHashtags returns a copy of the post's hashtags, each prefixed with '#'.
func (p GeneratedPost) NormalizedHashtags() []string {
	tags := make([]string, 0, len(p.Hashtags))
	for _, tag := range p.Hashtags {
		tags = append(tags, NormalizeHashtag(tag))
	}
	return tags
}
