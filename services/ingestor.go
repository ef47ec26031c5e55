package services

import (
	"context"
	"errors"

	"realtor-scraper/models"
	"realtor-scraper/storage"
	"realtor-scraper/utils"
)

// DefaultBatchSize is used when Ingest is given a non-positive batch size.
const DefaultBatchSize = 100

const maxErrorLen = 100

// BatchIngestor loads normalized listings into a ListingStore in fixed-size
// batches, isolating duplicate keys without losing the rest of a batch.
type BatchIngestor struct {
	store  storage.ListingStore
	logger *utils.Logger
}

// NewBatchIngestor creates a BatchIngestor writing to store.
func NewBatchIngestor(store storage.ListingStore, logger *utils.Logger) *BatchIngestor {
	return &BatchIngestor{store: store, logger: logger}
}

// Ingest inserts listings batch by batch. Every listing ends up counted as
// imported, skipped (duplicate) or failed; none is dropped silently.
func (b *BatchIngestor) Ingest(ctx context.Context, listings []*models.Listing, batchSize int) models.IngestOutcome {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total models.IngestOutcome
	for start := 0; start < len(listings); start += batchSize {
		end := start + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		n := start/batchSize + 1

		if ctx.Err() != nil {
			remaining := len(listings) - start
			b.logger.Error("[ingest] Stopped before batch %d: %v (%d listings not attempted)", n, ctx.Err(), remaining)
			total.Failed += remaining
			break
		}

		outcome := b.ingestBatch(ctx, n, listings[start:end])
		total.Add(outcome)
	}

	b.logger.Info("[ingest] Done: %d imported, %d skipped, %d failed", total.Imported, total.Skipped, total.Failed)
	return total
}

func (b *BatchIngestor) ingestBatch(ctx context.Context, n int, batch []*models.Listing) models.IngestOutcome {
	var out models.IngestOutcome

	err := b.store.Insert(ctx, batch)
	switch {
	case err == nil:
		out.Imported = len(batch)
		b.logger.Info("[ingest] Batch %d: imported %d listings", n, len(batch))
		return out

	case errors.Is(err, storage.ErrDuplicateKey):
		b.logger.Warn("[ingest] Batch %d: duplicate keys detected, inserting one by one", n)

	default:
		out.Failed = len(batch)
		b.logger.Error("[ingest] Batch %d: %s", n, utils.Truncate(err.Error(), maxErrorLen))
		return out
	}

	for _, l := range batch {
		err := b.store.Insert(ctx, []*models.Listing{l})
		switch {
		case err == nil:
			out.Imported++
		case errors.Is(err, storage.ErrDuplicateKey):
			out.Skipped++
			b.logger.Debug("[ingest] Skipped duplicate %s/%s", l.SourceCountry, l.NaturalKey)
		default:
			out.Failed++
			b.logger.Error("[ingest] Failed to import %s: %s", l.NaturalKey, utils.Truncate(err.Error(), maxErrorLen))
		}
	}

	b.logger.Info("[ingest] Batch %d: %d imported, %d skipped, %d failed", n, out.Imported, out.Skipped, out.Failed)
	return out
}
