// Package inference defines the client interface for AI image generation.
package inference

import (
	"context"
	"errors"

	"github.com/linguahub/vocabimage/internal/vocab"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client interface defines the methods for AI image generation operations.
type Client interface {
	GenerateImage(ctx context.Context, params GenerateImageRequest) (GenerateImageResponse, error)
}

// GenerateImageRequest holds the vocabulary pair to illustrate.
type GenerateImageRequest struct {
	Vocabulary string
	Language   vocab.Language
}

// GenerateImageResponse holds the generated image.
//
// Data contains the decoded image bytes for upload. DataURL is the original
// base64 data URL as returned by the model, kept so callers can fall back to
// an inline image when durable storage is unavailable.
type GenerateImageResponse struct {
	Data        []byte
	ContentType string
	DataURL     string
}

// ErrorKind classifies generation failures for the HTTP surface.
type ErrorKind string

const (
	ErrorKindRateLimited      ErrorKind = "rate_limited"
	ErrorKindPaymentRequired  ErrorKind = "payment_required"
	ErrorKindGenerationFailed ErrorKind = "generation_failed"
	ErrorKindNoImageProduced  ErrorKind = "no_image_produced"
	ErrorKindRequestTimeout   ErrorKind = "request_timeout"
)

// Error is a classified generation failure. None of the kinds are retried
// automatically; each surfaces to the caller as-is.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError returns the classified generation error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}
