package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrBucketMissing is returned by GetBucket when the bucket does not exist.
var ErrBucketMissing = errors.New("storage: bucket missing")

// HTTPBlobStore talks to a Supabase-compatible object storage API.
type HTTPBlobStore struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewHTTPBlobStore creates a client for bucket on the storage server at
// baseURL, authenticating with the service key.
func NewHTTPBlobStore(baseURL, serviceKey, bucket string) *HTTPBlobStore {
	return &HTTPBlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     serviceKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *HTTPBlobStore) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		segs := strings.Split(p, "/")
		for j, s := range segs {
			segs[j] = url.PathEscape(s)
		}
		escaped[i] = strings.Join(segs, "/")
	}
	return b.baseURL + "/storage/v1/" + strings.Join(escaped, "/")
}

func (b *HTTPBlobStore) do(ctx context.Context, method, endpoint string, body []byte, header map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.key)
	req.Header.Set("apikey", b.key)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, data, err
}

// GetBucket reports whether the bucket exists.
func (b *HTTPBlobStore) GetBucket(ctx context.Context) error {
	status, body, err := b.do(ctx, http.MethodGet, b.endpoint("bucket", b.bucket), nil, nil)
	if err != nil {
		return fmt.Errorf("storage: get bucket %s: %w", b.bucket, err)
	}
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return ErrBucketMissing
	default:
		return fmt.Errorf("storage: get bucket %s: status %d: %s", b.bucket, status, body)
	}
}

// CreateBucket creates the bucket with public read access.
func (b *HTTPBlobStore) CreateBucket(ctx context.Context) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":     b.bucket,
		"name":   b.bucket,
		"public": true,
	})
	status, body, err := b.do(ctx, http.MethodPost, b.endpoint("bucket"), payload,
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return fmt.Errorf("storage: create bucket %s: %w", b.bucket, err)
	}
	if status/100 != 2 {
		return fmt.Errorf("storage: create bucket %s: status %d: %s", b.bucket, status, body)
	}
	return nil
}

// EnsureBucket creates the bucket unless it already exists.
func (b *HTTPBlobStore) EnsureBucket(ctx context.Context) error {
	err := b.GetBucket(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrBucketMissing) {
		return err
	}
	return b.CreateBucket(ctx)
}

// Upload stores data at path, replacing any existing object.
func (b *HTTPBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	status, body, err := b.do(ctx, http.MethodPost, b.endpoint("object", b.bucket, path), data,
		map[string]string{"Content-Type": contentType, "x-upsert": "true"})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", path, err)
	}
	if status/100 != 2 {
		return fmt.Errorf("storage: upload %s: status %d: %s", path, status, body)
	}
	return nil
}

// PublicURL returns the unauthenticated URL of the object at path.
func (b *HTTPBlobStore) PublicURL(path string) string {
	return b.endpoint("object", "public", b.bucket, path)
}
