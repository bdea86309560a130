package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitelens/api/models"
)

func newMockStore(t *testing.T) (*PostgresPageViewStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresPageViewStore(db), mock
}

func pageViewRowColumns() []string {
	cols := strings.Split(pageViewColumns, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func TestPostgresPageViewStore_Create(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	pv := &models.PageView{
		ID: "8c7e2f0e-4c59-4c43-9a59-5a1c6a7b6f10", Type: models.PageViewEntry,
		WebsiteID: "site-1", Domain: "example.com", URL: "/",
		ServerTimestamp: now, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO page_views").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Create(context.Background(), pv))

	mock.ExpectExec("INSERT INTO page_views").WillReturnError(errors.New("connection refused"))
	err := s.Create(context.Background(), pv)
	assert.ErrorContains(t, err, "failed to insert page view")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPageViewStore_CloseOpen(t *testing.T) {
	const id = "8c7e2f0e-4c59-4c43-9a59-5a1c6a7b6f10"
	active := int64(1500)
	exit := models.ExitFields{ExitTime: time.Date(2024, 6, 15, 12, 5, 0, 0, time.UTC), ActiveTime: &active}

	t.Run("closes open entry", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE page_views").
			WithArgs(exit.ExitTime, active, sqlmock.AnyArg(), id, "site-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.CloseOpen(context.Background(), id, "site-1", exit))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already closed", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE page_views").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT true FROM page_views").
			WithArgs(id, "site-1").
			WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))

		err := s.CloseOpen(context.Background(), id, "site-1", exit)
		assert.ErrorIs(t, err, ErrAlreadyClosed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE page_views").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT true FROM page_views").WillReturnError(sql.ErrNoRows)

		err := s.CloseOpen(context.Background(), id, "site-1", exit)
		assert.ErrorIs(t, err, ErrPageViewNotFound)
	})

	t.Run("update error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE page_views").WillReturnError(errors.New("deadlock detected"))

		err := s.CloseOpen(context.Background(), id, "site-1", exit)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPageViewNotFound)
		assert.ErrorContains(t, err, "failed to close page view")
	})
}

func TestPostgresPageViewStore_GetByID(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := sqlmock.NewRows(pageViewRowColumns()).AddRow(
			"pv-1", "entry", "site-1", "example.com", "/", "https://google.com", nil,
			nil, "desktop", "Chrome", "120.0", "macOS", "10.15.7",
			"203.0.113.9", "Germany", nil, nil, nil,
			nil, nil, "launch", nil, nil,
			now, nil, nil, now, now, now,
		)
		mock.ExpectQuery("SELECT (.+) FROM page_views WHERE id").WithArgs("pv-1").WillReturnRows(rows)

		pv, err := s.GetByID(context.Background(), "pv-1")
		require.NoError(t, err)
		assert.Equal(t, models.PageViewEntry, pv.Type)
		assert.Equal(t, "https://google.com", *pv.Referrer)
		assert.Nil(t, pv.Language)
		assert.Equal(t, "launch", *pv.UTMCampaign)
		assert.Equal(t, models.SessionOpen, pv.State())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM page_views").WillReturnError(sql.ErrNoRows)

		_, err := s.GetByID(context.Background(), "pv-404")
		assert.ErrorIs(t, err, ErrPageViewNotFound)
	})
}

func TestPostgresPageViewStore_ListByWebsite(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	start := now.Add(-24 * time.Hour)
	end := now

	s, mock := newMockStore(t)
	rows := sqlmock.NewRows(pageViewRowColumns())
	for _, id := range []string{"pv-2", "pv-1"} {
		rows.AddRow(
			id, "exit", "site-1", "example.com", "/", nil, nil,
			nil, nil, nil, nil, nil, nil,
			nil, nil, nil, nil, nil,
			nil, nil, nil, nil, nil,
			nil, now, int64(300), now, now, now,
		)
	}
	mock.ExpectQuery(`FROM page_views WHERE website_id = \$1 AND server_timestamp >= \$2 AND server_timestamp <= \$3 ORDER BY server_timestamp DESC, id DESC`).
		WithArgs("site-1", start, end).
		WillReturnRows(rows)

	views, err := s.ListByWebsite(context.Background(), "site-1", TimeRange{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "pv-2", views[0].ID)
	assert.Equal(t, models.SessionOrphanClosed, views[0].State())
	assert.Equal(t, int64(300), *views[1].ActiveTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
