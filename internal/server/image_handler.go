// Package server provides the HTTP handler for the vocabulary image service.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/linguahub/vocabimage/internal/inference"
	"github.com/linguahub/vocabimage/internal/storage"
	"github.com/linguahub/vocabimage/internal/vocab"
)

// GenerateRequest is the JSON body of a generation request.
type GenerateRequest struct {
	Vocabulary string `json:"vocabulary"`
	Language   string `json:"language"`
}

// GenerateResponse is the JSON body of a successful generation response.
type GenerateResponse struct {
	ImageURL string `json:"imageUrl"`
	Cached   bool   `json:"cached"`
}

// ErrorResponse is the JSON body of a failed generation response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ImageHandler serves POST requests that resolve a vocabulary pair to an
// illustration URL, generating and storing the image on a cache miss.
//
// The handler keeps no state across requests; the repository and the bucket
// are the only shared resources.
type ImageHandler struct {
	repository vocab.Repository
	inference  inference.Client
	uploader   storage.Uploader
	now        func() time.Time
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(repository vocab.Repository, inferenceClient inference.Client, uploader storage.Uploader) *ImageHandler {
	return &ImageHandler{
		repository: repository,
		inference:  inferenceClient,
		uploader:   uploader,
		now:        time.Now,
	}
}

// ServeHTTP handles one generation request to completion: cache lookup,
// generation on a miss, upload, best-effort cache write. Every path ends in
// exactly one response.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var request GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Vocabulary word is required")
		return
	}

	key := vocab.NormalizeKey(request.Vocabulary)
	if key == "" {
		slog.Default().Error("missing vocabulary parameter")
		writeError(w, http.StatusBadRequest, "Vocabulary word is required")
		return
	}
	language, err := vocab.ParseLanguage(request.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported language %q", request.Language))
		return
	}

	ctx := r.Context()
	logger := slog.Default().With("vocabulary", request.Vocabulary, "key", key, "language", language)

	// A lookup failure is treated as a miss: serving a duplicate generation
	// beats failing the request over cache plumbing.
	cached, err := h.repository.FindByKey(ctx, key, language)
	if err != nil {
		logger.Error("cache lookup failed, treating as miss", "error", err)
	}
	if cached != nil {
		logger.Info("cache hit", "imageUrl", cached.ImageURL)
		writeJSON(w, http.StatusOK, GenerateResponse{ImageURL: cached.ImageURL, Cached: true})
		return
	}

	logger.Info("cache miss, generating image")
	generated, err := h.inference.GenerateImage(ctx, inference.GenerateImageRequest{
		Vocabulary: request.Vocabulary,
		Language:   language,
	})
	if err != nil {
		h.writeGenerationError(w, logger, err)
		return
	}

	object := vocab.ObjectName(key, language, h.now())
	if err := h.uploader.Upload(ctx, object, generated.ContentType, generated.Data); err != nil {
		// The caller only needs a displayable image. Degrade to the inline
		// data URL instead of failing a successful generation.
		logger.Error("storage upload failed, returning inline image", "error", err)
		writeJSON(w, http.StatusOK, GenerateResponse{ImageURL: generated.DataURL, Cached: false})
		return
	}

	publicURL := h.uploader.PublicURL(object)
	logger.Info("image uploaded", "imageUrl", publicURL)

	if err := h.repository.Create(ctx, &vocab.Image{
		VocabularyKey: key,
		Language:      language,
		ImageURL:      publicURL,
	}); err != nil {
		// Cache-write failure must not fail the user-visible request.
		logger.Error("cache write failed", "error", err)
	}

	writeJSON(w, http.StatusOK, GenerateResponse{ImageURL: publicURL, Cached: false})
}

func (h *ImageHandler) writeGenerationError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if genErr, ok := inference.AsError(err); ok {
		logger.Error("generation failed", "kind", genErr.Kind, "error", genErr.Message)
		if genErr.Kind == inference.ErrorKindGenerationFailed {
			sentry.CaptureException(err)
		}
		writeError(w, statusForKind(genErr.Kind), genErr.Message)
		return
	}

	logger.Error("generation failed", "error", err)
	sentry.CaptureException(err)
	writeError(w, http.StatusInternalServerError, "Failed to generate image")
}

func statusForKind(kind inference.ErrorKind) int {
	switch kind {
	case inference.ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case inference.ErrorKindPaymentRequired:
		return http.StatusPaymentRequired
	case inference.ErrorKindRequestTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
