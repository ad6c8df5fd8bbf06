package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ngamolsky/Curbd/pkg/models"
)

const (
	GeneratePostPath = "/api/v1/generate-post/"
	APIKeyHeader     = "x-api-key"
)

var tracer = otel.Tracer("curbd-client")

// Generator turns pending images and instructions into a generated post.
type Generator interface {
	GeneratePost(ctx context.Context, images []*PendingImage, userInput string) (*models.PostGenerationResponse, error)
}

// APIError is a non-2xx answer from the generation service. Detail is only
// filled for validation failures.
type APIError struct {
	StatusCode int
	Detail     []models.ValidationError
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation API returned status %d: %s", e.StatusCode, e.Body)
}

// APIClient talks to the generation service. The key is attached to every request.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient builds a client with no request timeout of its own.
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (c *APIClient) GeneratePost(ctx context.Context, images []*PendingImage, userInput string) (*models.PostGenerationResponse, error) {
	ctx, span := tracer.Start(ctx, "generate_post", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("curbd.image_count", len(images)))

	body, contentType, err := encodeForm(images, userInput)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePostPath, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send generate-post request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusUnprocessableEntity {
			var validation models.HTTPValidationError
			if json.Unmarshal(respBody, &validation) == nil {
				apiErr.Detail = validation.Detail
			}
		}
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var result models.PostGenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeForm(images []*PendingImage, userInput string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, quoteEscaper.Replace(img.Name)))
		h.Set("Content-Type", img.MIMEType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form part for %s: %w", img.Name, err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write form part for %s: %w", img.Name, err)
		}
	}
	if err := w.WriteField("user_input", userInput); err != nil {
		return nil, "", fmt.Errorf("failed to write user_input: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
