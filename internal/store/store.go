package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"adtrend/internal/model"
)

// Store wraps access to the scrape_requests and ad_creatives tables
// on a shared *sql.DB with pooling.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateScrapeRequest inserts one scrape request row.
func (s *Store) CreateScrapeRequest(ctx context.Context, req model.ScrapeRequest) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO scrape_requests (id, page_id, country, requested_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.PageID, req.Country, req.RequestedCount, req.CreatedAt)
	return err
}

// InsertAdCreatives stores the given rows in bulk. A row that collides
// with the unique (archive_id, card_index) index is skipped rather than
// failing the batch; this backstops the app-side dedup pass against
// concurrent scrapes of the same page. It returns the rows actually
// inserted and the number of rows skipped as duplicates.
func (s *Store) InsertAdCreatives(ctx context.Context, rows []model.AdCreative) ([]model.AdCreative, int, error) {
	saved := make([]model.AdCreative, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO ad_creatives
			   (id, request_id, archive_id, media_url, media_type, title, cta_text, link_url, page_name, card_index, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			row.ID, row.RequestID, row.ArchiveID, row.MediaURL, string(row.MediaType),
			row.Title, row.CTAText, row.LinkURL, row.PageName, row.CardIndex, row.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				skipped++
				continue
			}
			return saved, skipped, err
		}
		saved = append(saved, row)
	}

	return saved, skipped, nil
}

// ListArchiveIDs returns the set of archive identifiers already stored
// for the given page. It is read immediately before a dedup pass.
func (s *Store) ListArchiveIDs(ctx context.Context, pageID string) (map[string]struct{}, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT c.archive_id
		   FROM ad_creatives c
		   JOIN scrape_requests r ON r.id = c.request_id
		  WHERE r.page_id = $1`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

const storedAdColumns = `c.id, c.request_id, c.archive_id, c.media_url, c.media_type,
	c.title, c.cta_text, c.link_url, c.page_name, c.card_index,
	c.analysis, c.analyzed_at, c.created_at, r.page_id, r.country`

func scanStoredAd(scanner interface{ Scan(...any) error }) (model.StoredAd, error) {
	var ad model.StoredAd
	var mediaType string
	var analysis sql.NullString
	var analyzedAt sql.NullTime

	err := scanner.Scan(&ad.ID, &ad.RequestID, &ad.ArchiveID, &ad.MediaURL, &mediaType,
		&ad.Title, &ad.CTAText, &ad.LinkURL, &ad.PageName, &ad.CardIndex,
		&analysis, &analyzedAt, &ad.CreatedAt, &ad.PageID, &ad.Country)
	if err != nil {
		return model.StoredAd{}, err
	}

	ad.MediaType = model.MediaType(mediaType)
	if analysis.Valid {
		ad.Analysis = &analysis.String
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		ad.AnalyzedAt = &t
	}
	return ad, nil
}

// ListAdCreatives returns stored creatives joined with their request
// metadata, newest first, optionally filtered to one source page.
func (s *Store) ListAdCreatives(ctx context.Context, pageID string, limit, offset int) ([]model.StoredAd, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + storedAdColumns + `
		   FROM ad_creatives c
		   JOIN scrape_requests r ON r.id = c.request_id`
	args := []any{}
	if pageID != "" {
		query += ` WHERE r.page_id = $1 ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, pageID, limit, offset)
	} else {
		query += ` ORDER BY c.created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StoredAd
	for rows.Next() {
		ad, err := scanStoredAd(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ad)
	}
	return out, rows.Err()
}

// GetAdCreative fetches one creative with its request metadata.
func (s *Store) GetAdCreative(ctx context.Context, id uuid.UUID) (model.StoredAd, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+storedAdColumns+`
		   FROM ad_creatives c
		   JOIN scrape_requests r ON r.id = c.request_id
		  WHERE c.id = $1`, id)
	return scanStoredAd(row)
}

// UpdateAdCreativeAnalysis attaches analysis text and a timestamp to a
// creative. Rows are mutated exactly once this way; a forced reanalysis
// simply overwrites the previous text.
func (s *Store) UpdateAdCreativeAnalysis(ctx context.Context, id uuid.UUID, analysis string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE ad_creatives SET analysis = $2, analyzed_at = $3 WHERE id = $1`,
		id, analysis, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAnalyses returns the analysis corpus for trend synthesis: every
// non-empty analysis text, optionally restricted to one source page.
func (s *Store) ListAnalyses(ctx context.Context, pageID string) ([]string, error) {
	query := `SELECT c.analysis
		   FROM ad_creatives c
		   JOIN scrape_requests r ON r.id = c.request_id
		  WHERE c.analysis IS NOT NULL AND c.analysis <> ''`
	args := []any{}
	if pageID != "" {
		query += ` AND r.page_id = $1`
		args = append(args, pageID)
	}
	query += ` ORDER BY c.analyzed_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}
