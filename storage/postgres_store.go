package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"realtor-scraper/models"
)

const uniqueViolation = "23505"

var insertColumns = []string{
	"natural_key", "address", "locality", "region", "price",
	"bedrooms", "bathrooms", "area", "property_kind", "listing_uri",
	"image_uri", "original_image_uri", "local_image_path", "source_country", "pack_id",
}

// PostgresStore persists normalized listings to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			id                 BIGSERIAL PRIMARY KEY,
			natural_key        TEXT        NOT NULL,
			address            TEXT        NOT NULL,
			locality           TEXT,
			region             TEXT,
			price              BIGINT      NOT NULL CHECK (price > 0),
			bedrooms           INTEGER,
			bathrooms          INTEGER,
			area               INTEGER,
			property_kind      TEXT,
			listing_uri        TEXT,
			image_uri          TEXT,
			original_image_uri TEXT,
			local_image_path   TEXT,
			source_country     VARCHAR(2)  NOT NULL,
			pack_id            INTEGER,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (source_country, natural_key)
		);

		CREATE INDEX IF NOT EXISTS idx_properties_price    ON properties(price);
		CREATE INDEX IF NOT EXISTS idx_properties_locality ON properties(locality);
		CREATE INDEX IF NOT EXISTS idx_properties_pack     ON properties(pack_id);
	`)
	return err
}

// Insert stores listings with one multi-row statement, so a duplicate
// anywhere in the batch rejects the whole batch with ErrDuplicateKey.
func (ps *PostgresStore) Insert(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	query, args := buildInsert(listings)
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert %d listings: %w", len(listings), classify(err))
	}
	return nil
}

func buildInsert(batch []*models.Listing) (string, []interface{}) {
	width := len(insertColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*width)

	for idx, l := range batch {
		base := idx * width
		placeholders := make([]string, width)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.NaturalKey, l.Address, l.Locality, l.Region, l.Price,
			l.Bedrooms, l.Bathrooms, l.Area, l.PropertyKind, l.ListingURI,
			l.ImageURI, l.OriginalImageURI, l.LocalImagePath, l.SourceCountry, l.PackID)
	}

	query := fmt.Sprintf("INSERT INTO properties (%s) VALUES %s",
		strings.Join(insertColumns, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs
}

// classify maps driver errors onto the storage sentinels.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Detail)
	}
	return err
}

// Update patches one listing identified by country and natural key.
func (ps *PostgresStore) Update(ctx context.Context, country, naturalKey string, patch ListingPatch) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE properties
		SET image_uri        = COALESCE($1, image_uri),
		    local_image_path = COALESCE($2, local_image_path),
		    updated_at       = NOW()
		WHERE source_country = $3 AND natural_key = $4
	`, patch.ImageURI, patch.LocalImagePath, country, naturalKey)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", naturalKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", naturalKey, err)
	}
	if n == 0 {
		return fmt.Errorf("postgres: update %s: %w", naturalKey, ErrNotFound)
	}
	return nil
}

// Select retrieves stored listings in insertion order.
func (ps *PostgresStore) Select(ctx context.Context, filter Filter) ([]*models.Listing, error) {
	query, args := buildSelect(filter)
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.NaturalKey, &l.Address, &l.Locality, &l.Region, &l.Price,
			&l.Bedrooms, &l.Bathrooms, &l.Area, &l.PropertyKind, &l.ListingURI,
			&l.ImageURI, &l.OriginalImageURI, &l.LocalImagePath, &l.SourceCountry, &l.PackID,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func buildSelect(filter Filter) (string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.SourceCountry != "" {
		args = append(args, filter.SourceCountry)
		where = append(where, fmt.Sprintf("source_country = $%d", len(args)))
	}
	if filter.PackID != nil {
		args = append(args, *filter.PackID)
		where = append(where, fmt.Sprintf("pack_id = $%d", len(args)))
	}

	query := "SELECT " + strings.Join(insertColumns, ", ") + " FROM properties"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return query, args
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
