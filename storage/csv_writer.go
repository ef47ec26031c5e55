package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"realtor-scraper/models"
)

// CSVWriter writes normalized listings to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Write header
	if err := w.Write([]string{
		"natural_key", "address", "locality", "region", "price", "bedrooms", "bathrooms", "area",
		"property_kind", "listing_uri", "image_uri", "local_image_path", "source_country", "pack_id",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per listing. Absent fields are written empty.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	for _, l := range listings {
		row := []string{
			l.NaturalKey,
			l.Address,
			str(l.Locality),
			str(l.Region),
			strconv.FormatInt(l.Price, 10),
			num(l.Bedrooms),
			num(l.Bathrooms),
			num(l.Area),
			str(l.PropertyKind),
			str(l.ListingURI),
			str(l.ImageURI),
			str(l.LocalImagePath),
			l.SourceCountry,
			num(l.PackID),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
