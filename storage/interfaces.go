package storage

import (
	"context"
	"errors"

	"realtor-scraper/models"
)

var (
	// ErrDuplicateKey is returned when an insert hits the natural-key
	// uniqueness constraint.
	ErrDuplicateKey = errors.New("storage: duplicate natural key")
	// ErrNotFound is returned by Update when no row matched.
	ErrNotFound = errors.New("storage: listing not found")
)

// ListingStore is the persistent store of normalized listings. Insert is
// atomic per call: either every listing is stored or none is.
type ListingStore interface {
	Insert(ctx context.Context, listings []*models.Listing) error
	Update(ctx context.Context, country, naturalKey string, patch ListingPatch) error
	Select(ctx context.Context, filter Filter) ([]*models.Listing, error)
	Close() error
}

// ListingPatch lists the columns Update may change; nil fields are kept.
type ListingPatch struct {
	ImageURI       *string
	LocalImagePath *string
}

// Filter narrows Select. Zero values match everything.
type Filter struct {
	SourceCountry string
	PackID        *int
	Limit         int
}

// BlobStore stores image bytes and hands out public URLs.
type BlobStore interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

// ListingWriter is the interface any file export must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
