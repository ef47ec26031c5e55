package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"realtor-scraper/models"
)

// CheckpointFile is a JSON array of listings rewritten in place every time
// progress is saved.
type CheckpointFile struct {
	Path string
}

// Save replaces the checkpoint with listings.
func (c *CheckpointFile) Save(listings []*models.Listing) error {
	if listings == nil {
		listings = []*models.Listing{}
	}
	return WriteJSON(c.Path, listings)
}

// WriteJSON writes v as indented JSON to path. The data goes to a temporary
// file in the same directory first and is renamed over path, so readers
// never see a partial file.
func WriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("json: rename to %s: %w", path, err)
	}
	return nil
}

// LoadListings reads a checkpoint file back, validating it first.
func LoadListings(path string) ([]*models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	if err := validateDocument(schemaCheckpoint, data); err != nil {
		return nil, fmt.Errorf("checkpoint: %s: %w", path, err)
	}
	var listings []*models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", path, err)
	}
	return listings, nil
}

// LoadRawRecords reads loosely typed records for import: a JSON array, or a
// CSV file when the name ends in .csv.
func LoadRawRecords(path string) ([]models.RawCardFields, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadRawCSV(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import: read %s: %w", path, err)
	}
	var records []models.RawCardFields
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("import: decode %s: %w", path, err)
	}
	return records, nil
}
