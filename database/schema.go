package database

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS websites (
		id SERIAL PRIMARY KEY,
		website_id TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		timezone TEXT NOT NULL,
		enable_local_tracking BOOLEAN NOT NULL DEFAULT false,
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, domain)
	)`,
	`CREATE TABLE IF NOT EXISTS page_views (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		website_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		referrer TEXT,
		language TEXT,
		user_agent TEXT,
		device TEXT,
		browser TEXT,
		browser_version TEXT,
		os TEXT,
		os_version TEXT,
		ip TEXT,
		country TEXT,
		region TEXT,
		city TEXT,
		timezone TEXT,
		utm_source TEXT,
		utm_medium TEXT,
		utm_campaign TEXT,
		utm_term TEXT,
		utm_content TEXT,
		entry_time TIMESTAMPTZ,
		exit_time TIMESTAMPTZ,
		active_time BIGINT CHECK (active_time >= 0),
		server_timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_website_ts ON page_views (website_id, server_timestamp DESC)`,
}

const clickhousePageViewsTable = `
	CREATE TABLE IF NOT EXISTS page_views (
		id UUID,
		type LowCardinality(String),
		website_id String,
		domain String,
		url String,
		referrer Nullable(String),
		language Nullable(String),
		user_agent Nullable(String),
		device Nullable(String),
		browser Nullable(String),
		browser_version Nullable(String),
		os Nullable(String),
		os_version Nullable(String),
		ip Nullable(String),
		country Nullable(String),
		region Nullable(String),
		city Nullable(String),
		timezone Nullable(String),
		utm_source Nullable(String),
		utm_medium Nullable(String),
		utm_campaign Nullable(String),
		utm_term Nullable(String),
		utm_content Nullable(String),
		entry_time Nullable(DateTime64(3, 'UTC')),
		exit_time Nullable(DateTime64(3, 'UTC')),
		active_time Nullable(Int64),
		server_timestamp DateTime64(3, 'UTC'),
		created_at DateTime64(3, 'UTC'),
		updated_at DateTime64(3, 'UTC'),
		version UInt32
	)
	ENGINE = ReplacingMergeTree(version)
	ORDER BY (website_id, id)
`
