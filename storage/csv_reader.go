package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"realtor-scraper/models"
)

// LoadRawCSV reads an import file in CSV form. The header row names the
// fields; it accepts the same names as the JSON import, including the legacy
// ones, so files written by CSVWriter can be imported back. Empty cells are
// treated as absent.
func LoadRawCSV(path string) ([]models.RawCardFields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("import: read %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []models.RawCardFields{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("import: header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	records := []models.RawCardFields{}
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("import: %s line %d: %w", path, line, err)
		}

		fields := make(map[string]string, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				fields[header[i]] = cell
			}
		}
		if len(fields) == 0 {
			continue
		}

		// reuse the JSON alias handling; every cell arrives as text
		doc, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("import: %s line %d: %w", path, line, err)
		}
		var rec models.RawCardFields
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("import: %s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
