package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"realtor-scraper/config"
	"realtor-scraper/models"
	"realtor-scraper/scraper/browser"
	"realtor-scraper/scraper/realtor"
	"realtor-scraper/services"
	"realtor-scraper/storage"
	"realtor-scraper/utils"
)

func runScrape(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	targetsFile := fs.String("targets", cfg.TargetsFile, "YAML file of search targets")
	total := fs.Int("total", cfg.TargetTotal, "number of listings to collect")
	fetchImages := fs.Bool("images", false, "download listing images to IMAGES_DIR")
	ingest := fs.Bool("ingest", false, "load the collected listings into the store")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *total <= 0 {
		logger.Error("-total must be positive, got %d", *total)
		return 2
	}

	targets, err := config.LoadTargets(*targetsFile)
	if err != nil {
		logger.Error("Failed to load targets: %v", err)
		return 1
	}

	rateMin, rateMax := cfg.RateLimit()
	logger.Info("=== Realtor scraping session starting ===")
	logger.Info("Config: targets %d | goal %d | per target %d | pages %d | delay %v-%v",
		len(targets), *total, cfg.MaxPerTarget, cfg.MaxPages, rateMin, rateMax)

	page, err := browser.Launch(ctx, browser.Options{
		ChromeBin: cfg.ChromeBin,
		Headless:  cfg.Headless,
	})
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		return 1
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("Browser close: %v", err)
		}
		logger.Info("Browser closed")
	}()

	settings := realtor.DefaultSettings()
	settings.SearchURL = cfg.SearchURL
	settings.LoadAttempts = cfg.LoadAttempts
	settings.ScrollCycles = cfg.ScrollCycles
	settings.MaxPages = cfg.MaxPages

	var images realtor.ImageFetcher
	if *fetchImages {
		images = services.NewImageService(cfg.ImagesDir, cfg.ImageRPS, nil, logger)
	}

	session := realtor.NewSession(
		realtor.NewController(page, settings, logger),
		services.NewNormalizer(services.NormalizeContext{
			SourceCountry: cfg.SourceCountry,
			PackID:        cfg.Pack(),
		}, logger),
		&storage.CheckpointFile{Path: filepath.Join(cfg.OutputDir, "listings_progress.json")},
		images,
		realtor.SessionConfig{
			MaxPerTarget:    cfg.MaxPerTarget,
			CheckpointEvery: cfg.CheckpointEvery,
			RateMin:         rateMin,
			RateMax:         rateMax,
		},
		logger,
	)

	listings := session.Run(ctx, targets, *total, *fetchImages)
	if len(listings) == 0 {
		logger.Error("No listings were collected. Exiting.")
		return 1
	}

	jsonPath := filepath.Join(cfg.OutputDir, "listings.json")
	if err := storage.WriteJSON(jsonPath, listings); err != nil {
		logger.Error("JSON export failed: %v", err)
	} else {
		logger.Info("Saved %d listings to %s", len(listings), jsonPath)
	}

	csvPath := filepath.Join(cfg.OutputDir, "listings.csv")
	if err := exportCSV(csvPath, listings); err != nil {
		logger.Error("CSV export failed: %v", err)
	} else {
		logger.Info("Saved %d listings to %s", len(listings), csvPath)
	}

	if !*ingest {
		return 0
	}
	return ingestListings(ctx, cfg, logger, listings, cfg.BatchSize, 0, "IMPORT SUMMARY")
}

func exportCSV(path string, listings []*models.Listing) error {
	cw, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	var w storage.ListingWriter = cw
	if err := w.Write(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func runImport(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", filepath.Join(cfg.OutputDir, "listings.json"), "JSON array or CSV file of listings to import")
	country := fs.String("country", cfg.SourceCountry, "source country tag")
	pack := fs.Int("pack", cfg.PackID, "pack id tag (0 for none)")
	batch := fs.Int("batch", cfg.BatchSize, "insert batch size")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	records, err := storage.LoadRawRecords(*file)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	logger.Info("Loaded %d records from %s", len(records), *file)

	var packID *int
	if *pack > 0 {
		packID = pack
	}
	normalizer := services.NewNormalizer(services.NormalizeContext{
		SourceCountry: *country,
		PackID:        packID,
	}, logger)
	listings, rejected := normalizer.NormalizeAll(records)

	return ingestListings(ctx, cfg, logger, listings, *batch, rejected, "IMPORT SUMMARY")
}

func runRestore(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	file := fs.String("file", filepath.Join(cfg.BackupDir, "listings_backup_latest.json"), "checkpoint or backup file")
	batch := fs.Int("batch", cfg.BatchSize, "insert batch size")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	listings, err := storage.LoadRestoreFile(*file)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	logger.Info("Restoring %d listings from %s", len(listings), *file)

	return ingestListings(ctx, cfg, logger, listings, *batch, 0, "RESTORE SUMMARY")
}

// ingestListings connects to the store and loads listings. Records rejected
// earlier by normalization are reported as skipped.
func ingestListings(ctx context.Context, cfg *config.Config, logger *utils.Logger,
	listings []*models.Listing, batchSize, rejected int, title string) int {
	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return 1
	}
	defer store.Close()

	outcome := services.NewBatchIngestor(store, logger).Ingest(ctx, listings, batchSize)
	outcome.Skipped += rejected

	printSummary(title, []summaryLine{
		{"✓ Successfully imported", outcome.Imported},
		{"⚠ Skipped (duplicates/invalid)", outcome.Skipped},
		{"✗ Failed", outcome.Failed},
	})
	if outcome.Failed > 0 {
		return 1
	}
	return 0
}

func runUploadImages(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("upload-images", flag.ContinueOnError)
	file := fs.String("file", filepath.Join(cfg.OutputDir, "listings.json"), "JSON array of listings")
	updateStore := fs.Bool("update-store", false, "also point stored rows at the uploaded images")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if cfg.StorageURL == "" || cfg.StorageServiceKey == "" {
		logger.Error("STORAGE_URL and STORAGE_SERVICE_KEY must be set")
		return 1
	}

	listings, err := storage.LoadListings(*file)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	logger.Info("Found %d listings in %s", len(listings), *file)

	blob := storage.NewHTTPBlobStore(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket)
	svc := services.NewImageService(cfg.ImagesDir, cfg.ImageRPS, blob, logger)
	updated, sum := svc.UploadAll(ctx, listings)

	ext := filepath.Ext(*file)
	outPath := strings.TrimSuffix(*file, ext) + "_with_storage_urls" + ext
	if err := storage.WriteJSON(outPath, updated); err != nil {
		logger.Error("Failed to save %s: %v", outPath, err)
		return 1
	}
	logger.Info("Saved updated listings to %s", outPath)

	if *updateStore {
		if code := patchStoredImages(ctx, cfg, logger, listings, updated); code != 0 {
			return code
		}
	}

	printSummary("UPLOAD SUMMARY", []summaryLine{
		{"✓ Successfully uploaded", sum.Uploaded},
		{"⚠ Skipped (no URL or 404)", sum.Skipped},
		{"✗ Failed", sum.Failed},
	})
	return 0
}

func patchStoredImages(ctx context.Context, cfg *config.Config, logger *utils.Logger,
	before, after []*models.Listing) int {
	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return 1
	}
	defer store.Close()

	patched, missing := 0, 0
	for i, l := range after {
		if l == before[i] || l.ImageURI == nil {
			continue
		}
		err := store.Update(ctx, l.SourceCountry, l.NaturalKey, storage.ListingPatch{ImageURI: l.ImageURI})
		switch {
		case err == nil:
			patched++
		case errors.Is(err, storage.ErrNotFound):
			missing++
		default:
			logger.Error("Update %s: %s", l.NaturalKey, utils.Truncate(err.Error(), 100))
		}
	}
	logger.Info("Store updated: %d rows patched, %d not stored yet", patched, missing)
	return 0
}

func runBackup(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	list := fs.Bool("list", false, "list available backups")
	reason := fs.String("reason", "manual backup", "reason recorded in the backup")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *list {
		infos, err := storage.ListBackups(cfg.BackupDir)
		if err != nil {
			logger.Error("%v", err)
			return 1
		}
		if len(infos) == 0 {
			fmt.Printf("No backups found in %s\n", cfg.BackupDir)
			return 0
		}
		fmt.Printf("\nAvailable backups in %s:\n\n", cfg.BackupDir)
		for i, b := range infos {
			fmt.Printf("  %2d. %s  %8.1f KB  %s\n", i+1, b.Name, float64(b.Size)/1024,
				b.ModTime.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
		return 0
	}

	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return 1
	}
	defer store.Close()

	listings, err := store.Select(ctx, storage.Filter{})
	if err != nil {
		logger.Error("%v", err)
		return 1
	}

	b := storage.NewBackup(listings, *reason, time.Now())
	path, err := storage.WriteBackup(cfg.BackupDir, b)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	logger.Info("Backup %s written to %s", b.BackupID, path)

	printSummary("BACKUP SUMMARY", []summaryLine{
		{"Total listings", b.Statistics.TotalListings},
		{"Unique localities", b.Statistics.UniqueLocalities},
	})
	if b.RecordCount > 0 {
		fmt.Printf("Price range: $%d - $%d\n\n", b.Statistics.LowestPrice, b.Statistics.HighestPrice)
	}
	return 0
}

func runStats(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	country := fs.String("country", "", "only listings from this source country")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return 1
	}
	defer store.Close()

	listings, err := store.Select(ctx, storage.Filter{SourceCountry: strings.ToUpper(*country)})
	if err != nil {
		logger.Error("Failed to fetch listings for insights: %v", err)
		return 1
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, insightSvc.Generate(listings))
	return 0
}

type summaryLine struct {
	label string
	value int
}

func printSummary(title string, lines []summaryLine) {
	sep := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n%s\n%s\n", sep, title, sep)
	for _, l := range lines {
		fmt.Printf("%s: %d\n", l.label, l.value)
	}
	fmt.Printf("%s\n\n", sep)
}
