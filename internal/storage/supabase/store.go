// Package supabase implements a BlobStore over the Supabase storage REST
// API.
package supabase

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// Config captures the parameters required to reach a Supabase project.
type Config struct {
	ProjectID      string
	ServiceRoleKey string
	Bucket         string
}

// BlobStore uploads objects to a Supabase storage bucket.
type BlobStore struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

// New creates a Supabase-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("supabase project id is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("supabase service role key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client := resty.New().
		SetHeader("apikey", cfg.ServiceRoleKey).
		SetAuthToken(cfg.ServiceRoleKey)
	return &BlobStore{
		client:  client,
		baseURL: fmt.Sprintf("https://%s.supabase.co", cfg.ProjectID),
		bucket:  cfg.Bucket,
	}, nil
}

// newWithBaseURL supports tests against a local server.
func newWithBaseURL(baseURL, key, bucket string) *BlobStore {
	client := resty.New().
		SetHeader("apikey", key).
		SetAuthToken(key)
	return &BlobStore{client: client, baseURL: baseURL, bucket: bucket}
}

// Upload pushes one object and returns its public URL. Existing objects
// are overwritten via x-upsert, so re-publishing an event is idempotent.
func (s *BlobStore) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath))
	if err != nil {
		return "", &crawler.PersistenceError{Op: "storage upload", Message: objectPath, Err: err}
	}
	if resp.IsError() {
		return "", &crawler.PersistenceError{
			Op:      "storage upload",
			Message: fmt.Sprintf("%s: HTTP %d: %s", objectPath, resp.StatusCode(), resp.String()),
		}
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath), nil
}
