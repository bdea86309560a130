package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitelens/api/models"
)

const pageViewColumns = `id, type, website_id, domain, url, referrer, language,
	user_agent, device, browser, browser_version, os, os_version,
	ip, country, region, city, timezone,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	entry_time, exit_time, active_time, server_timestamp, created_at, updated_at`

type PostgresPageViewStore struct {
	db *sql.DB
}

func NewPostgresPageViewStore(db *sql.DB) *PostgresPageViewStore {
	return &PostgresPageViewStore{db: db}
}

func (s *PostgresPageViewStore) Create(ctx context.Context, pv *models.PageView) error {
	query := `INSERT INTO page_views (` + pageViewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	_, err := s.db.ExecContext(ctx, query,
		pv.ID, string(pv.Type), pv.WebsiteID, pv.Domain, pv.URL, pv.Referrer, pv.Language,
		pv.UserAgent, pv.Device, pv.Browser, pv.BrowserVersion, pv.OS, pv.OSVersion,
		pv.IP, pv.Country, pv.Region, pv.City, pv.Timezone,
		pv.UTMSource, pv.UTMMedium, pv.UTMCampaign, pv.UTMTerm, pv.UTMContent,
		pv.EntryTime, pv.ExitTime, pv.ActiveTime, pv.ServerTimestamp, pv.CreatedAt, pv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}
	return nil
}

func (s *PostgresPageViewStore) CloseOpen(ctx context.Context, id, websiteID string, exit models.ExitFields) error {
	// Single conditional UPDATE: row-level locking makes the close atomic and
	// a second exit for the same id matches zero rows.
	res, err := s.db.ExecContext(ctx, `
		UPDATE page_views
		SET exit_time = $1, active_time = $2, updated_at = $3
		WHERE id = $4 AND website_id = $5 AND type = 'entry' AND exit_time IS NULL`,
		exit.ExitTime, exit.ActiveTime, time.Now().UTC(), id, websiteID,
	)
	if err != nil {
		return fmt.Errorf("failed to close page view: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT true FROM page_views WHERE id = $1 AND website_id = $2 AND type = 'entry'`,
		id, websiteID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPageViewNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up page view: %w", err)
	}
	return ErrAlreadyClosed
}

func (s *PostgresPageViewStore) GetByID(ctx context.Context, id string) (*models.PageView, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageViewColumns+` FROM page_views WHERE id = $1`, id)
	pv, err := scanPageView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageViewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page view: %w", err)
	}
	return pv, nil
}

func (s *PostgresPageViewStore) ListByWebsite(ctx context.Context, websiteID string, r TimeRange) ([]models.PageView, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + pageViewColumns + ` FROM page_views WHERE website_id = $1`)
	args := []interface{}{websiteID}
	if r.Start != nil {
		args = append(args, *r.Start)
		fmt.Fprintf(&b, " AND server_timestamp >= $%d", len(args))
	}
	if r.End != nil {
		args = append(args, *r.End)
		fmt.Fprintf(&b, " AND server_timestamp <= $%d", len(args))
	}
	b.WriteString(" ORDER BY server_timestamp DESC, id DESC")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page views: %w", err)
	}
	defer rows.Close()

	var views []models.PageView
	for rows.Next() {
		pv, err := scanPageView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed scanning page view row: %w", err)
		}
		views = append(views, *pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page view rows: %w", err)
	}
	return views, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPageView(row rowScanner) (*models.PageView, error) {
	var (
		pv  models.PageView
		typ string
	)
	err := row.Scan(
		&pv.ID, &typ, &pv.WebsiteID, &pv.Domain, &pv.URL, &pv.Referrer, &pv.Language,
		&pv.UserAgent, &pv.Device, &pv.Browser, &pv.BrowserVersion, &pv.OS, &pv.OSVersion,
		&pv.IP, &pv.Country, &pv.Region, &pv.City, &pv.Timezone,
		&pv.UTMSource, &pv.UTMMedium, &pv.UTMCampaign, &pv.UTMTerm, &pv.UTMContent,
		&pv.EntryTime, &pv.ExitTime, &pv.ActiveTime, &pv.ServerTimestamp, &pv.CreatedAt, &pv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pv.Type = models.PageViewType(typ)
	return &pv, nil
}
