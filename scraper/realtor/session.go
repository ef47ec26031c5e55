package realtor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"realtor-scraper/models"
	"realtor-scraper/utils"
)

// Collector gathers raw cards for one search target.
type Collector interface {
	Collect(ctx context.Context, target string, maxListings int) TargetResult
}

// Normalizer turns a raw card into a canonical listing.
type Normalizer interface {
	Normalize(raw models.RawCardFields) (*models.Listing, models.RejectReason)
}

// Checkpointer persists the listings collected so far.
type Checkpointer interface {
	Save(listings []*models.Listing) error
}

// ImageFetcher downloads a listing image and returns the local path.
type ImageFetcher interface {
	Download(ctx context.Context, key, url string) (string, bool)
}

// SessionConfig holds the session-wide limits.
type SessionConfig struct {
	MaxPerTarget    int
	CheckpointEvery int
	RateMin         time.Duration
	RateMax         time.Duration
}

// Stats are the counters of one session run.
type Stats struct {
	TargetsVisited int
	TargetsAborted int
	Pages          int
	Collected      int
	CardsRejected  int
	Rejected       int
	Repeats        int
	ImagesSaved    int
	ImagesFailed   int
	Checkpoints    int
}

// Session walks the prioritized search targets with one Collector and
// collects normalized listings until the requested total is reached.
type Session struct {
	RunID string

	collector  Collector
	normalizer Normalizer
	checkpoint Checkpointer
	images     ImageFetcher
	cfg        SessionConfig
	logger     *utils.Logger

	seen  *utils.KeySet
	stats Stats
}

// NewSession wires a session. checkpoint and images may be nil.
func NewSession(collector Collector, normalizer Normalizer, checkpoint Checkpointer,
	images ImageFetcher, cfg SessionConfig, logger *utils.Logger) *Session {
	return &Session{
		RunID:      uuid.NewString(),
		collector:  collector,
		normalizer: normalizer,
		checkpoint: checkpoint,
		images:     images,
		cfg:        cfg,
		logger:     logger,
		seen:       utils.NewKeySet(),
	}
}

// Stats returns the counters gathered so far.
func (s *Session) Stats() Stats {
	return s.stats
}

// initialCapacity bounds the up-front allocation for a run's results.
const initialCapacity = 1024

// Run iterates targets in order until targetTotal listings were collected
// or the targets run out. A target that fails to load is skipped.
func (s *Session) Run(ctx context.Context, targets []string, targetTotal int, fetchImages bool) []*models.Listing {
	s.logger.Info("[session] Run %s started: %d targets, goal %d listings, images=%v",
		s.RunID, len(targets), targetTotal, fetchImages)

	if targetTotal <= 0 {
		s.logger.Warn("[session] Nothing to collect: goal is %d", targetTotal)
		return []*models.Listing{}
	}

	out := make([]*models.Listing, 0, min(targetTotal, initialCapacity))
	lastSaved := 0

	for i, target := range targets {
		if len(out) >= targetTotal || ctx.Err() != nil {
			break
		}

		limit := targetTotal - len(out)
		if s.cfg.MaxPerTarget > 0 && s.cfg.MaxPerTarget < limit {
			limit = s.cfg.MaxPerTarget
		}

		s.logger.Info("[session] Searching %s (%d/%d), up to %d listings", target, i+1, len(targets), limit)
		res := s.collector.Collect(ctx, target, limit)

		s.stats.TargetsVisited++
		s.stats.Pages += res.Pages
		s.stats.CardsRejected += res.Rejected
		if res.State == StateAborted {
			s.stats.TargetsAborted++
		}

		for _, raw := range res.Listings {
			if len(out) >= targetTotal {
				break
			}

			if raw.Locality == "" {
				raw.Locality, raw.Region = placeFromAddress(raw.Address, target)
			}

			if fetchImages && s.images != nil && raw.ImageURI != "" {
				key := raw.NaturalKey
				if key == "" {
					key = strconv.Itoa(s.stats.Collected)
				}
				if path, ok := s.images.Download(ctx, key, raw.ImageURI); ok {
					raw.LocalImagePath = path
					s.stats.ImagesSaved++
				} else {
					s.stats.ImagesFailed++
				}
			}

			listing, reason := s.normalizer.Normalize(raw)
			if reason != models.RejectNone {
				s.stats.Rejected++
				s.logger.Debug("[session] Dropped card from %s: %s", target, reason)
				continue
			}

			if !s.seen.Add(listing.NaturalKey) {
				s.stats.Repeats++
				s.logger.Warn("[session] Listing %s seen again (page reread?)", listing.NaturalKey)
			}

			out = append(out, listing)
			s.stats.Collected++

			if s.cfg.CheckpointEvery > 0 && len(out)%s.cfg.CheckpointEvery == 0 {
				s.save(out)
				lastSaved = len(out)
			}
		}

		s.logger.Info("[session] %s finished (%s, %d pages): %d/%d listings",
			target, res.State, res.Pages, len(out), targetTotal)

		if len(out) < targetTotal && i < len(targets)-1 {
			delay := utils.RandomDelay(s.cfg.RateMin, s.cfg.RateMax)
			s.logger.Info("[session] Waiting %.1fs before next target", delay.Seconds())
			if utils.Sleep(ctx, delay) != nil {
				break
			}
		}
	}

	if lastSaved != len(out) && len(out) > 0 {
		s.save(out)
	}

	s.logger.Info("[session] Run %s complete: %d listings from %d targets (%d aborted, %d rejected, %d repeats)",
		s.RunID, len(out), s.stats.TargetsVisited, s.stats.TargetsAborted,
		s.stats.Rejected+s.stats.CardsRejected, s.stats.Repeats)
	return out
}

func (s *Session) save(listings []*models.Listing) {
	if s.checkpoint == nil {
		return
	}
	if err := s.checkpoint.Save(listings); err != nil {
		s.logger.Error("[session] Checkpoint at %d listings failed: %v", len(listings), err)
		return
	}
	s.stats.Checkpoints++
	s.logger.Info("[session] Progress saved: %d listings", len(listings))
}

// placeFromAddress derives locality and region from an address shaped like
// "12 Main St, Toronto, ON M5V 2T6". When the address has no commas the
// search target ("Toronto, ON") is used instead.
func placeFromAddress(address, target string) (string, string) {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		parts = strings.Split(target, ",")
		if len(parts) < 2 {
			return strings.TrimSpace(target), ""
		}
	}
	locality := strings.TrimSpace(parts[len(parts)-2])
	region := ""
	if fields := strings.Fields(parts[len(parts)-1]); len(fields) > 0 {
		region = fields[0]
	}
	return locality, region
}
