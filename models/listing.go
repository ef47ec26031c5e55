package models

import "time"

// RawCardFields holds the candidate fields pulled from one listing card, or
// one record of an import file. Nothing is required here; an empty string or
// an unset Flex means the field was absent.
type RawCardFields struct {
	NaturalKey      string `json:"natural_key,omitempty"`
	Address         string `json:"address,omitempty"`
	Locality        string `json:"locality,omitempty"`
	Region          string `json:"region,omitempty"`
	Price           Flex   `json:"price"`
	Bedrooms        Flex   `json:"bedrooms"`
	Bathrooms       Flex   `json:"bathrooms"`
	Area            Flex   `json:"area"`
	PropertyKind    string `json:"property_kind,omitempty"`
	ListingURI      string `json:"listing_uri,omitempty"`
	ImageURI        string `json:"image_uri,omitempty"`
	LocalImagePath  string `json:"local_image_path,omitempty"`
	StorageImageURI string `json:"storage_image_uri,omitempty"`

	OriginalImageURI string `json:"original_image_uri,omitempty"`
}

// Listing is the canonical, normalized record persisted downstream.
// NaturalKey, Address and Price are always set; the rest is nullable.
type Listing struct {
	NaturalKey       string  `json:"natural_key"`
	Address          string  `json:"address"`
	Locality         *string `json:"locality"`
	Region           *string `json:"region"`
	Price            int64   `json:"price"`
	Bedrooms         *int    `json:"bedrooms"`
	Bathrooms        *int    `json:"bathrooms"`
	Area             *int    `json:"area"`
	PropertyKind     *string `json:"property_kind"`
	ListingURI       *string `json:"listing_uri"`
	ImageURI         *string `json:"image_uri"`
	OriginalImageURI *string `json:"original_image_uri"`
	LocalImagePath   *string `json:"local_image_path"`
	SourceCountry    string  `json:"source_country"`
	PackID           *int    `json:"pack_id"`
}

// WithImage returns a copy of l whose ImageURI points at uri. The previous
// image URI is kept as OriginalImageURI when none was recorded yet.
func (l *Listing) WithImage(uri string) *Listing {
	cp := *l
	if cp.OriginalImageURI == nil && cp.ImageURI != nil {
		orig := *cp.ImageURI
		cp.OriginalImageURI = &orig
	}
	cp.ImageURI = &uri
	return &cp
}

// IngestOutcome counts what happened to each record of one ingestion run.
// Counters only ever grow.
type IngestOutcome struct {
	Imported int
	Skipped  int
	Failed   int
}

// Total is the number of records accounted for.
func (o IngestOutcome) Total() int {
	return o.Imported + o.Skipped + o.Failed
}

// Add folds other into o.
func (o *IngestOutcome) Add(other IngestOutcome) {
	o.Imported += other.Imported
	o.Skipped += other.Skipped
	o.Failed += other.Failed
}

// CountryStats summarises listings of one source country.
type CountryStats struct {
	Total        int
	AveragePrice float64
	MinPrice     int64
	MaxPrice     int64
	AvgBedrooms  float64
	AvgBathrooms float64
}

// InsightReport holds the computed analytics over stored listings.
type InsightReport struct {
	TotalListings      int
	ByCountry          map[string]*CountryStats
	AveragePrice       float64
	MinPrice           int64
	MaxPrice           int64
	MostExpensive      *Listing
	TopPriced          []*Listing
	ListingsByLocality map[string]int
}

// BackupStatistics is the summary stored alongside a backup snapshot.
type BackupStatistics struct {
	TotalListings    int   `json:"total_listings"`
	HighestPrice     int64 `json:"highest_price"`
	LowestPrice      int64 `json:"lowest_price"`
	UniqueLocalities int   `json:"unique_localities"`
}

// Backup is a full-collection snapshot written by the backup command.
type Backup struct {
	BackupID     string           `json:"backup_id"`
	BackupDate   time.Time        `json:"backup_date"`
	BackupReason string           `json:"backup_reason"`
	RecordCount  int              `json:"record_count"`
	Data         []*Listing       `json:"data"`
	Statistics   BackupStatistics `json:"statistics"`
}

// RejectReason explains why a raw record did not normalize. RejectNone means
// the record was accepted.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectMissingKey     RejectReason = "missing natural key"
	RejectMissingAddress RejectReason = "missing address"
	RejectInvalidPrice   RejectReason = "invalid price"
)
