package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"realtor-scraper/models"
)

const (
	backupPrefix     = "listings_backup_"
	backupLatest     = backupPrefix + "latest.json"
	backupTimeFormat = "20060102_150405"
)

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// NewBackup snapshots listings with summary statistics.
func NewBackup(listings []*models.Listing, reason string, now time.Time) *models.Backup {
	if listings == nil {
		listings = []*models.Listing{}
	}
	return &models.Backup{
		BackupID:     uuid.NewString(),
		BackupDate:   now.UTC(),
		BackupReason: reason,
		RecordCount:  len(listings),
		Data:         listings,
		Statistics:   backupStatistics(listings),
	}
}

func backupStatistics(listings []*models.Listing) models.BackupStatistics {
	st := models.BackupStatistics{TotalListings: len(listings)}
	localities := make(map[string]struct{})
	for i, l := range listings {
		if i == 0 || l.Price > st.HighestPrice {
			st.HighestPrice = l.Price
		}
		if i == 0 || l.Price < st.LowestPrice {
			st.LowestPrice = l.Price
		}
		if l.Locality != nil && *l.Locality != "" {
			localities[*l.Locality] = struct{}{}
		}
	}
	st.UniqueLocalities = len(localities)
	return st
}

// WriteBackup stores b as a timestamped file in dir and refreshes the
// "latest" copy. It returns the timestamped path.
func WriteBackup(dir string, b *models.Backup) (string, error) {
	name := backupPrefix + b.BackupDate.UTC().Format(backupTimeFormat) + ".json"
	path := filepath.Join(dir, name)
	if err := WriteJSON(path, b); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if err := WriteJSON(filepath.Join(dir, backupLatest), b); err != nil {
		return path, fmt.Errorf("backup: latest: %w", err)
	}
	return path, nil
}

// ListBackups returns the timestamped backups in dir, newest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list %s: %w", dir, err)
	}

	var out []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == backupLatest ||
			!strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	// the timestamp format sorts lexically
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// LoadRestoreFile reads either a checkpoint (JSON array) or a backup (JSON
// object) and returns its listings after schema validation.
func LoadRestoreFile(path string) ([]*models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restore: read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("restore: %s is empty", path)
	}

	if trimmed[0] == '[' {
		if err := validateDocument(schemaCheckpoint, trimmed); err != nil {
			return nil, fmt.Errorf("restore: %s: %w", path, err)
		}
		var listings []*models.Listing
		if err := json.Unmarshal(trimmed, &listings); err != nil {
			return nil, fmt.Errorf("restore: decode %s: %w", path, err)
		}
		return listings, nil
	}

	if err := validateDocument(schemaBackup, trimmed); err != nil {
		return nil, fmt.Errorf("restore: %s: %w", path, err)
	}
	var b models.Backup
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return nil, fmt.Errorf("restore: decode %s: %w", path, err)
	}
	if b.RecordCount != len(b.Data) {
		return nil, fmt.Errorf("restore: %s: record_count %d does not match %d records",
			path, b.RecordCount, len(b.Data))
	}
	return b.Data, nil
}
