package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"sitelens/api/database"
	"sitelens/api/models"
)

// ClickHouseStore keeps page views in a ReplacingMergeTree. Closing an entry
// inserts a higher version of the same row; reads use FINAL.
//
// A close is not atomic here: exits that race for one entry may all return
// nil. The stored result is still deterministic, see closeVersion.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouseStore(chClient *database.ClickHouseClient) *ClickHouseStore {
	return &ClickHouseStore{conn: chClient.Conn}
}

func (s *ClickHouseStore) Create(ctx context.Context, pv *models.PageView) error {
	return s.insert(ctx, pv, 1)
}

func (s *ClickHouseStore) insert(ctx context.Context, pv *models.PageView, version uint32) error {
	id, err := uuid.Parse(pv.ID)
	if err != nil {
		return fmt.Errorf("invalid page view id %q: %w", pv.ID, err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO page_views (`+pageViewColumns+`, version)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	err = batch.Append(
		id, string(pv.Type), pv.WebsiteID, pv.Domain, pv.URL, pv.Referrer, pv.Language,
		pv.UserAgent, pv.Device, pv.Browser, pv.BrowserVersion, pv.OS, pv.OSVersion,
		pv.IP, pv.Country, pv.Region, pv.City, pv.Timezone,
		pv.UTMSource, pv.UTMMedium, pv.UTMCampaign, pv.UTMTerm, pv.UTMContent,
		pv.EntryTime, pv.ExitTime, pv.ActiveTime, pv.ServerTimestamp, pv.CreatedAt, pv.UpdatedAt,
		version,
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to append page view to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) CloseOpen(ctx context.Context, id, websiteID string, exit models.ExitFields) error {
	rows, err := s.conn.Query(ctx, `
		SELECT `+pageViewColumns+`, version
		FROM page_views FINAL
		WHERE website_id = ? AND id = toUUIDOrZero(?) AND type = 'entry'
		LIMIT 1`, websiteID, id)
	if err != nil {
		return fmt.Errorf("failed to look up page view: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to look up page view: %w", err)
		}
		return ErrPageViewNotFound
	}
	pv, version, err := scanClickHouseRow(rows)
	if err != nil {
		return fmt.Errorf("failed scanning page view row: %w", err)
	}
	if pv.ExitTime != nil {
		return ErrAlreadyClosed
	}

	pv.ApplyExit(exit, time.Now().UTC())
	return s.insert(ctx, pv, closeVersion(version, pv.ServerTimestamp, exit.ExitTime))
}

// closeVersion orders competing closes of one entry. ClickHouse has no
// conditional write, so two exits racing past the FINAL check both insert; the
// exit closest to the entry gets the highest version and survives the merge
// whatever the insert order. The result is always above the entry's version.
func closeVersion(entryVersion uint32, entryAt, exitAt time.Time) uint32 {
	elapsed := exitAt.Sub(entryAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	span := int64(math.MaxUint32 - entryVersion - 1)
	if elapsed > span {
		elapsed = span
	}
	return math.MaxUint32 - uint32(elapsed)
}

func (s *ClickHouseStore) GetByID(ctx context.Context, id string) (*models.PageView, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+pageViewColumns+`, version
		FROM page_views FINAL
		WHERE id = toUUIDOrZero(?)
		LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get page view: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get page view: %w", err)
		}
		return nil, ErrPageViewNotFound
	}
	pv, _, err := scanClickHouseRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed scanning page view row: %w", err)
	}
	return pv, nil
}

func (s *ClickHouseStore) ListByWebsite(ctx context.Context, websiteID string, r TimeRange) ([]models.PageView, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + pageViewColumns + `, version FROM page_views FINAL WHERE website_id = ?`)
	args := []interface{}{websiteID}
	if r.Start != nil {
		b.WriteString(" AND server_timestamp >= ?")
		args = append(args, *r.Start)
	}
	if r.End != nil {
		b.WriteString(" AND server_timestamp <= ?")
		args = append(args, *r.End)
	}
	b.WriteString(" ORDER BY server_timestamp DESC, id DESC")

	rows, err := s.conn.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page views: %w", err)
	}
	defer rows.Close()

	var views []models.PageView
	for rows.Next() {
		pv, _, err := scanClickHouseRow(rows)
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

func scanClickHouseRow(rows driver.Rows) (*models.PageView, uint32, error) {
	var (
		pv      models.PageView
		id      uuid.UUID
		typ     string
		version uint32
	)
	err := rows.Scan(
		&id, &typ, &pv.WebsiteID, &pv.Domain, &pv.URL, &pv.Referrer, &pv.Language,
		&pv.UserAgent, &pv.Device, &pv.Browser, &pv.BrowserVersion, &pv.OS, &pv.OSVersion,
		&pv.IP, &pv.Country, &pv.Region, &pv.City, &pv.Timezone,
		&pv.UTMSource, &pv.UTMMedium, &pv.UTMCampaign, &pv.UTMTerm, &pv.UTMContent,
		&pv.EntryTime, &pv.ExitTime, &pv.ActiveTime, &pv.ServerTimestamp, &pv.CreatedAt, &pv.UpdatedAt,
		&version,
	)
	if err != nil {
		return nil, 0, err
	}
	pv.ID = id.String()
	pv.Type = models.PageViewType(typ)
	return &pv, version, nil
}
