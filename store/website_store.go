package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sitelens/api/models"
)

var (
	ErrWebsiteNotFound = errors.New("website not found")
	ErrWebsiteExists   = errors.New("website already exists")
)

const websiteColumns = `id, website_id, domain, timezone, enable_local_tracking, user_id, created_at, updated_at`

type WebsiteStore struct {
	db *sql.DB
}

func NewWebsiteStore(db *sql.DB) *WebsiteStore {
	return &WebsiteStore{db: db}
}

// Create registers a website. A taken website id or a domain the owner
// already registered yields ErrWebsiteExists.
func (s *WebsiteStore) Create(ctx context.Context, w models.Website) (*models.Website, error) {
	query := `
		INSERT INTO websites (website_id, domain, timezone, enable_local_tracking, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + websiteColumns

	created, err := scanWebsite(s.db.QueryRowContext(ctx, query,
		w.WebsiteID, w.Domain, w.Timezone, w.EnableLocalTracking, w.UserID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrWebsiteExists
		}
		return nil, fmt.Errorf("failed to create website: %w", err)
	}
	return created, nil
}

// GetOwned returns the website only when userID owns it.
func (s *WebsiteStore) GetOwned(ctx context.Context, websiteID string, userID int) (*models.Website, error) {
	w, err := scanWebsite(s.db.QueryRowContext(ctx,
		`SELECT `+websiteColumns+` FROM websites WHERE website_id = $1 AND user_id = $2`,
		websiteID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWebsiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	return w, nil
}

func (s *WebsiteStore) ListByUser(ctx context.Context, userID int) ([]models.Website, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+websiteColumns+` FROM websites WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query websites: %w", err)
	}
	defer rows.Close()

	websites := []models.Website{}
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed scanning website row: %w", err)
		}
		websites = append(websites, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating website rows: %w", err)
	}
	return websites, nil
}

func scanWebsite(row rowScanner) (*models.Website, error) {
	var w models.Website
	err := row.Scan(&w.ID, &w.WebsiteID, &w.Domain, &w.Timezone, &w.EnableLocalTracking,
		&w.UserID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
