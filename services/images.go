package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"realtor-scraper/models"
	"realtor-scraper/storage"
	"realtor-scraper/utils"
)

const maxImageBytes = 20 << 20

var errImageNotFound = errors.New("image not found")

// UploadResult is the fate of one listing's image during an upload run.
type UploadResult int

const (
	UploadDone UploadResult = iota
	UploadSkipped
	UploadFailed
)

// UploadSummary counts the results of an upload run.
type UploadSummary struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// ImageService downloads listing images to disk and republishes them
// through a BlobStore. Requests are paced by a token-bucket limiter.
type ImageService struct {
	dir     string
	client  *http.Client
	limiter *rate.Limiter
	blob    storage.BlobStore
	logger  *utils.Logger
}

// NewImageService creates an ImageService saving into dir and issuing at
// most rps image requests per second (unlimited when rps <= 0). blob may be
// nil when only downloads are needed.
func NewImageService(dir string, rps float64, blob storage.BlobStore, logger *utils.Logger) *ImageService {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &ImageService{
		dir:     dir,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		blob:    blob,
		logger:  logger,
	}
}

// Download saves the image at url as <dir>/<key>.jpg and returns the path.
// An existing file is reused. Failures are logged and reported as false.
func (s *ImageService) Download(ctx context.Context, key, url string) (string, bool) {
	if url == "" {
		return "", false
	}
	path := filepath.Join(s.dir, safeName(key)+".jpg")
	if _, err := os.Stat(path); err == nil {
		return path, true
	}

	data, err := s.fetch(ctx, url)
	if err != nil {
		s.logger.Warn("[images] Download %s failed: %s", key, utils.Truncate(err.Error(), maxErrorLen))
		return "", false
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Warn("[images] Create %s: %v", s.dir, err)
		return "", false
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn("[images] Write %s: %v", path, err)
		return "", false
	}
	return path, true
}

func (s *ImageService) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errImageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// Upload publishes the listing's image under properties/<key>.jpg and
// returns a copy of l pointing at the public URL. A local download is used
// when present, otherwise the original image is fetched. A listing without
// an image, or whose image is gone (404), is skipped.
func (s *ImageService) Upload(ctx context.Context, l *models.Listing) (*models.Listing, UploadResult) {
	source := ""
	if l.OriginalImageURI != nil {
		source = *l.OriginalImageURI
	} else if l.ImageURI != nil {
		source = *l.ImageURI
	}

	var data []byte
	if l.LocalImagePath != nil {
		if b, err := os.ReadFile(*l.LocalImagePath); err == nil {
			data = b
		}
	}
	if data == nil {
		if source == "" {
			return l, UploadSkipped
		}
		b, err := s.fetch(ctx, source)
		if errors.Is(err, errImageNotFound) {
			s.logger.Debug("[images] %s: image gone (404), skipping", l.NaturalKey)
			return l, UploadSkipped
		}
		if err != nil {
			s.logger.Error("[images] %s: download failed: %s", l.NaturalKey, utils.Truncate(err.Error(), maxErrorLen))
			return l, UploadFailed
		}
		data = b
	}

	path := "properties/" + safeName(l.NaturalKey) + ".jpg"
	if err := s.blob.Upload(ctx, path, data, "image/jpeg"); err != nil {
		s.logger.Error("[images] %s: upload failed: %s", l.NaturalKey, utils.Truncate(err.Error(), maxErrorLen))
		return l, UploadFailed
	}
	return l.WithImage(s.blob.PublicURL(path)), UploadDone
}

// UploadAll runs Upload over listings after making sure the bucket exists.
// The returned slice has the same order and length as listings.
func (s *ImageService) UploadAll(ctx context.Context, listings []*models.Listing) ([]*models.Listing, UploadSummary) {
	var sum UploadSummary
	if err := s.blob.EnsureBucket(ctx); err != nil {
		// the bucket may have been created by hand; uploads will tell
		s.logger.Warn("[images] Could not ensure bucket: %v", err)
	}

	out := make([]*models.Listing, len(listings))
	for i, l := range listings {
		updated, res := s.Upload(ctx, l)
		out[i] = updated
		switch res {
		case UploadDone:
			sum.Uploaded++
		case UploadSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
		if (i+1)%10 == 0 {
			s.logger.Info("[images] Progress: %d/%d (%d uploaded)", i+1, len(listings), sum.Uploaded)
		}
	}
	return out, sum
}

// safeName keeps natural keys usable as file and object names.
func safeName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}
