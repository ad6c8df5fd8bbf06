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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/pkg/models"
)

var ErrNoPost = errors.New("no post found in model output")

const formatInstructions = `Respond with a single JSON object and nothing else, shaped like:
{"title": "<string>", "description": "<string>", "hashtags": ["<string>", "..."]}`

// PostWriter writes a giveaway post from image descriptions through a
// Hugging Face text-generation endpoint.
type PostWriter struct {
	url          string
	apiKey       string
	cost         float64
	temperature  float64
	maxNewTokens int
	httpClient   *http.Client
}

func NewPostWriter(cfg config.HuggingFace) *PostWriter {
	return &PostWriter{
		url:          cfg.TextURL,
		apiKey:       cfg.APIKey,
		cost:         cfg.TextCost,
		temperature:  cfg.Temperature,
		maxNewTokens: cfg.MaxNewTokens,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

type textGenerationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters textGenerationParams `json:"parameters"`
}

type textGenerationParams struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

// Write returns the generated post and what it cost.
func (w *PostWriter) Write(ctx context.Context, descriptions []string, userInput string) (*models.GeneratedPost, float64, error) {
	ctx, span := tracer.Start(ctx, "write_post", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("curbd.description_count", len(descriptions)))

	reqBody, err := json.Marshal(textGenerationRequest{
		Inputs: BuildPrompt(descriptions, userInput),
		Parameters: textGenerationParams{
			Temperature:  w.temperature,
			MaxNewTokens: w.maxNewTokens,
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(reqBody))
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to read text generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("text generation API responded with status %d: %s", resp.StatusCode, string(body))
		span.RecordError(err)
		return nil, 0, err
	}

	var results []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(results) == 0 {
		return nil, 0, ErrNoPost
	}

	zap.L().Debug("generated post content", zap.String("content", results[0].GeneratedText))
	post, err := ParsePost(results[0].GeneratedText)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	return post, w.cost, nil
}

// BuildPrompt asks for a giveaway post about the described items.
func BuildPrompt(descriptions []string, userInput string) string {
	var b strings.Builder
	b.WriteString("Analyze the following image descriptions and optional user input:\n")
	b.WriteString("Image descriptions: " + strings.Join(descriptions, "\n") + "\n")
	b.WriteString("User input: " + userInput + "\n\n")
	b.WriteString("Based on this information, generate a post for giving away the item(s) for free. Follow these steps:\n")
	b.WriteString("1. Create an engaging and concise title that will grab attention and clearly convey what's being offered.\n")
	b.WriteString("2. Write a compelling description that provides more information about the item(s), their condition, and any relevant details. Keep it friendly and appealing to potential takers.\n")
	b.WriteString("3. Generate 3-5 hashtags that will help the post reach interested people. Include general and specific tags related to the item(s) and free giveaways.\n")
	b.WriteString("4. If user input is provided, incorporate it appropriately into the generated content, ensuring it enhances the title, description, or hashtags as needed.\n\n")
	b.WriteString("Format the output according to these instructions: " + formatInstructions + "\n")
	return b.String()
}

// ParsePost decodes the JSON object embedded in model output.
func ParsePost(text string) (*models.GeneratedPost, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoPost
	}
	var post models.GeneratedPost
	if err := json.Unmarshal([]byte(text[start:end+1]), &post); err != nil {
		return nil, fmt.Errorf("failed to parse generated post: %w", err)
	}
	if strings.TrimSpace(post.Title) == "" {
		return nil, fmt.Errorf("generated post has no title: %w", ErrNoPost)
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	return &post, nil
}
