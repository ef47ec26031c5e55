package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"realtor-scraper/models"
	"realtor-scraper/utils"
)

var (
	// priceNoise matches everything that is not part of a plain decimal number
	priceNoise = regexp.MustCompile(`[^\d.\-]`)
	// areaRegexp captures the first integer in values like "1,500-2,000 sqft"
	areaRegexp = regexp.MustCompile(`\d+`)
)

// NormalizeContext carries the caller-supplied tags that are not derived
// from the card itself.
type NormalizeContext struct {
	SourceCountry string
	PackID        *int
	// StorageURIs maps natural keys to already-uploaded image URIs.
	StorageURIs map[string]string
}

// Normalizer maps raw records to the canonical Listing schema.
type Normalizer struct {
	ctx    NormalizeContext
	title  cases.Caser
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer bound to ctx.
func NewNormalizer(ctx NormalizeContext, logger *utils.Logger) *Normalizer {
	ctx.SourceCountry = strings.ToUpper(strings.TrimSpace(ctx.SourceCountry))
	return &Normalizer{
		ctx:    ctx,
		title:  cases.Title(language.English),
		logger: logger,
	}
}

// Normalize validates raw and coerces it into a Listing. The required fields
// are checked in order: natural key, address, price. Optional fields that
// fail to coerce are left nil and never reject the record.
func (n *Normalizer) Normalize(raw models.RawCardFields) (*models.Listing, models.RejectReason) {
	key := strings.TrimSpace(raw.NaturalKey)
	if key == "" {
		return nil, models.RejectMissingKey
	}

	address := normaliseText(raw.Address)
	if address == "" {
		return nil, models.RejectMissingAddress
	}

	price, ok := parsePrice(raw.Price)
	if !ok {
		return nil, models.RejectInvalidPrice
	}

	l := &models.Listing{
		NaturalKey:     key,
		Address:        address,
		Price:          price,
		Bedrooms:       parseCount(raw.Bedrooms),
		Bathrooms:      parseCount(raw.Bathrooms),
		Area:           parseArea(raw.Area),
		PropertyKind:   optional(raw.PropertyKind),
		ListingURI:     optional(raw.ListingURI),
		LocalImagePath: optional(raw.LocalImagePath),
		SourceCountry:  n.ctx.SourceCountry,
		PackID:         n.ctx.PackID,
	}

	if loc := normaliseText(raw.Locality); loc != "" {
		loc = n.title.String(loc)
		l.Locality = &loc
	}
	if region := strings.ToUpper(normaliseText(raw.Region)); region != "" {
		l.Region = &region
	}

	scraped := strings.TrimSpace(raw.ImageURI)
	original := strings.TrimSpace(raw.OriginalImageURI)
	if original == "" {
		original = scraped
	}
	stored := strings.TrimSpace(n.ctx.StorageURIs[key])
	if stored == "" {
		stored = strings.TrimSpace(raw.StorageImageURI)
	}
	if stored != "" {
		l.ImageURI = &stored
	} else {
		l.ImageURI = optional(scraped)
	}
	l.OriginalImageURI = optional(original)

	return l, models.RejectNone
}

// NormalizeAll normalizes every record and returns the accepted listings
// along with the number rejected.
func (n *Normalizer) NormalizeAll(raws []models.RawCardFields) ([]*models.Listing, int) {
	out := make([]*models.Listing, 0, len(raws))
	rejected := 0
	for i, raw := range raws {
		l, reason := n.Normalize(raw)
		if reason != models.RejectNone {
			rejected++
			n.logger.Debug("[normalizer] Record %d (%q) rejected: %s", i, raw.NaturalKey, reason)
			continue
		}
		out = append(out, l)
	}
	n.logger.Info("[normalizer] Normalized %d → %d listings (rejected %d)", len(raws), len(out), rejected)
	return out, rejected
}

// parsePrice accepts a number or a string with currency noise and returns a
// positive whole amount.
//
//	"$450,000" → 450000
//	"450000"   → 450000
//	"$0", "-5" → rejected
func parsePrice(f models.Flex) (int64, bool) {
	if !f.Valid() {
		return 0, false
	}
	text := f.String()
	if !f.IsNumber() {
		text = priceNoise.ReplaceAllString(text, "")
	}
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v >= math.MaxInt64 {
		return 0, false
	}
	price := int64(v)
	if price <= 0 {
		return 0, false
	}
	return price, true
}

// parseCount coerces room counts. "+"-joined parts such as "3 + 1" are summed.
func parseCount(f models.Flex) *int {
	if !f.Valid() {
		return nil
	}
	text := strings.TrimSpace(f.String())
	if text == "" {
		return nil
	}

	if strings.Contains(text, "+") {
		total := 0
		for _, part := range strings.Split(text, "+") {
			n, ok := wholeNumber(part)
			if !ok || n > maxCount-total {
				return nil
			}
			total += n
		}
		return &total
	}

	n, ok := wholeNumber(text)
	if !ok {
		return nil
	}
	return &n
}

// maxCount is the largest count or area the listings table can hold.
const maxCount = math.MaxInt32

// wholeNumber parses a non-negative number, truncating fractions. Values that
// do not fit an INTEGER column are refused.
func wholeNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n <= maxCount
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v <= maxCount {
		return int(v), true
	}
	return 0, false
}

// parseArea takes a number as-is, or the first integer of a textual value.
func parseArea(f models.Flex) *int {
	if !f.Valid() {
		return nil
	}
	if f.IsNumber() {
		v, err := strconv.ParseFloat(f.String(), 64)
		if err != nil || v < 1 || v > maxCount {
			return nil
		}
		n := int(v)
		return &n
	}
	m := areaRegexp.FindString(strings.ReplaceAll(f.String(), ",", ""))
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 || n > maxCount {
		return nil
	}
	return &n
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
