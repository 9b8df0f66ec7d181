// Package gateway implements the inference client against an
// OpenAI-compatible image generation gateway.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/linguahub/vocabimage/internal/inference"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	httpClient *resty.Client
	model      string
	timeout    time.Duration
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: client,
		model:      model,
		timeout:    timeout,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client *Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Modalities []string  `json:"modalities"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser Role = "user"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role           `json:"role"`
	Content string         `json:"content"`
	Images  []MessageImage `json:"images,omitempty"`
}

type MessageImage struct {
	ImageURL ImageURL `json:"image_url"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// prompt builds the illustration instruction for a vocabulary pair. The two
// templates differ only by language name.
func prompt(params inference.GenerateImageRequest) string {
	return fmt.Sprintf(
		`Create a simple, colorful, cartoon-style illustration for the %s vocabulary word: %q. `+
			`The image should be cute, educational, and clearly represent the meaning of the word. `+
			`No text in the image, just a clear visual representation. `+
			`Style: flat design, vibrant colors, minimal background, centered composition.`,
		params.Language.Name(), params.Vocabulary)
}

// GenerateImage implements the inference.Client interface. A hung gateway
// call is cut off by the configured timeout and classified as a timeout
// rather than hanging the request.
func (client *Client) GenerateImage(
	ctx context.Context,
	params inference.GenerateImageRequest,
) (inference.GenerateImageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	requestBody := ChatCompletionRequest{
		Model: client.model,
		Messages: []Message{
			{
				Role:    RoleUser,
				Content: prompt(params),
			},
		},
		Modalities: []string{"image", "text"},
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return inference.GenerateImageResponse{}, &inference.Error{
				Kind:    inference.ErrorKindRequestTimeout,
				Message: "Image generation timed out, please try again.",
			}
		}
		return inference.GenerateImageResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		slog.Default().Error("gateway returned an error response",
			"status", response.StatusCode(),
			"body", response.String(),
		)
		return inference.GenerateImageResponse{}, classifyStatus(response.StatusCode())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return inference.GenerateImageResponse{}, &inference.Error{
			Kind:    inference.ErrorKindNoImageProduced,
			Message: "No image generated",
		}
	}

	images := responseBody.Choices[0].Message.Images
	if len(images) == 0 || images[0].ImageURL.URL == "" {
		return inference.GenerateImageResponse{}, &inference.Error{
			Kind:    inference.ErrorKindNoImageProduced,
			Message: "No image generated",
		}
	}

	dataURL := images[0].ImageURL.URL
	data, contentType, err := decodeDataURL(dataURL)
	if err != nil {
		return inference.GenerateImageResponse{}, fmt.Errorf("decodeDataURL > %w", err)
	}

	slog.Default().Debug("gateway image generated",
		"vocabulary", params.Vocabulary,
		"language", params.Language,
		"bytes", len(data),
	)
	return inference.GenerateImageResponse{
		Data:        data,
		ContentType: contentType,
		DataURL:     dataURL,
	}, nil
}

func classifyStatus(status int) *inference.Error {
	switch status {
	case http.StatusTooManyRequests:
		return &inference.Error{
			Kind:    inference.ErrorKindRateLimited,
			Message: "Rate limit exceeded, please try again later.",
		}
	case http.StatusPaymentRequired:
		return &inference.Error{
			Kind:    inference.ErrorKindPaymentRequired,
			Message: "Payment required, please add funds.",
		}
	}
	return &inference.Error{
		Kind:    inference.ErrorKindGenerationFailed,
		Message: "Failed to generate image",
	}
}

// decodeDataURL decodes a "data:image/png;base64,..." URL into raw bytes and
// a content type. A bare base64 payload without the prefix is accepted and
// treated as a PNG.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	contentType := "image/png"
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		mediaType, rest, found := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		payload = rest
		mediaType = strings.TrimSuffix(mediaType, ";base64")
		if mediaType != "" {
			contentType = mediaType
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("base64.Decode > %w", err)
	}
	return data, contentType, nil
}
