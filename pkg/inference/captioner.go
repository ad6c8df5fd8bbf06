package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
)

var (
	tracer = otel.Tracer("curbd-inference")

	ErrNoCaption = errors.New("no caption received")
)

// ImageAnalysis is what the vision model saw in one uploaded image.
type ImageAnalysis struct {
	Key         string
	Description string
	Cost        float64
}

// Captioner describes images through a Hugging Face image-to-text endpoint.
type Captioner struct {
	url        string
	apiKey     string
	cost       float64
	httpClient *http.Client
}

func NewCaptioner(cfg config.HuggingFace) *Captioner {
	return &Captioner{
		url:        cfg.CaptionURL,
		apiKey:     cfg.APIKey,
		cost:       cfg.CaptionCost,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Captioner) Analyze(ctx context.Context, key string, image []byte, contentType string) (*ImageAnalysis, error) {
	ctx, span := tracer.Start(ctx, "caption_image", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("curbd.image_key", key), attribute.Int("curbd.image_size", len(image)))

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read caption response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("caption API responded with status %d: %s", resp.StatusCode, string(body))
		span.RecordError(err)
		return nil, err
	}

	caption, err := parseCaption(body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	zap.L().Info("image analysis completed",
		zap.String("key", key),
		zap.Duration("duration", time.Since(start)),
		zap.Float64("cost", c.cost),
	)
	return &ImageAnalysis{Key: key, Description: caption, Cost: c.cost}, nil
}

// parseCaption accepts both [{"generated_text": ...}] and {"generated_caption": ...}.
func parseCaption(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	var caption string
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []struct {
			GeneratedText string `json:"generated_text"`
		}
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return "", fmt.Errorf("failed to parse API response: %w", err)
		}
		if len(results) > 0 {
			caption = results[0].GeneratedText
		}
	} else {
		var result struct {
			Caption string `json:"generated_caption"`
		}
		if err := json.Unmarshal(trimmed, &result); err != nil {
			return "", fmt.Errorf("failed to parse API response: %w", err)
		}
		caption = result.Caption
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", ErrNoCaption
	}
	return caption, nil
}
