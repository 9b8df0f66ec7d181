// Package storage provides durable blob storage for generated images.
package storage

import (
	"context"
	"fmt"
	"strings"

	"resty.dev/v3"
)

//go:generate mockgen -source=bucket.go -destination=../mocks/storage/mock_uploader.go -package=mock_storage

// Uploader defines operations against a public storage bucket.
type Uploader interface {
	Upload(ctx context.Context, object string, contentType string, data []byte) error
	PublicURL(object string) string
}

// BucketClient implements Uploader against a Supabase-compatible storage API.
type BucketClient struct {
	httpClient *resty.Client
	baseURL    string
	bucket     string
}

// NewBucketClient creates a client for one storage bucket. The service key
// is a long-lived credential with write access to the bucket.
func NewBucketClient(baseURL, serviceKey, bucket string) *BucketClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+serviceKey)

	return &BucketClient{
		httpClient: client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		bucket:     bucket,
	}
}

func (client *BucketClient) Close() error {
	return client.httpClient.Close()
}

// Upload stores a binary object in the bucket, replacing any object with the
// same name.
func (client *BucketClient) Upload(ctx context.Context, object string, contentType string, data []byte) error {
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", client.bucket, object))
	if err != nil {
		return fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}
	return nil
}

// PublicURL returns the stable public URL for an object in the bucket. The
// bucket is public, so the URL is derivable without a request.
func (client *BucketClient) PublicURL(object string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", client.baseURL, client.bucket, object)
}
