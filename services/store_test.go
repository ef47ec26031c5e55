package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"realtor-scraper/models"
	"realtor-scraper/storage"
)

// memStore is an in-memory ListingStore enforcing (country, key) uniqueness.
// Keys listed in broken fail with a non-duplicate error.
type memStore struct {
	rows     map[string]*models.Listing
	order    []string
	broken   map[string]bool
	batchErr error
	inserts  int
	attempts map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[string]*models.Listing),
		broken:   make(map[string]bool),
		attempts: make(map[string]int),
	}
}

func storeKey(country, key string) string { return country + "/" + key }

func (m *memStore) Insert(_ context.Context, listings []*models.Listing) error {
	m.inserts++
	if m.batchErr != nil && len(listings) > 1 {
		return m.batchErr
	}
	seen := make(map[string]bool)
	for _, l := range listings {
		k := storeKey(l.SourceCountry, l.NaturalKey)
		m.attempts[k]++
		if _, dup := m.rows[k]; dup || seen[k] {
			return fmt.Errorf("insert: %w", storage.ErrDuplicateKey)
		}
		if m.broken[l.NaturalKey] {
			return errors.New("value too long for type character varying(2) while inserting a rather long row into properties")
		}
		seen[k] = true
	}
	for _, l := range listings {
		k := storeKey(l.SourceCountry, l.NaturalKey)
		m.rows[k] = l
		m.order = append(m.order, k)
	}
	return nil
}

func (m *memStore) Update(_ context.Context, country, key string, patch storage.ListingPatch) error {
	l, ok := m.rows[storeKey(country, key)]
	if !ok {
		return storage.ErrNotFound
	}
	if patch.ImageURI != nil {
		l.ImageURI = patch.ImageURI
	}
	if patch.LocalImagePath != nil {
		l.LocalImagePath = patch.LocalImagePath
	}
	return nil
}

func (m *memStore) Select(_ context.Context, f storage.Filter) ([]*models.Listing, error) {
	var out []*models.Listing
	for _, k := range m.order {
		l := m.rows[k]
		if f.SourceCountry != "" && l.SourceCountry != f.SourceCountry {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func listingsN(prefix string, n int) []*models.Listing {
	out := make([]*models.Listing, n)
	for i := range out {
		out[i] = &models.Listing{
			NaturalKey:    prefix + strconv.Itoa(i+1),
			Address:       strconv.Itoa(i+1) + " Yonge St, Toronto, ON",
			Price:         int64(400000 + i*1000),
			SourceCountry: "CA",
		}
	}
	return out
}
