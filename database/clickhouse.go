package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog/log"
)

type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

func NewClickHouseDB(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseClient, error) {
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "sitelens-api", Version: "1.0.0"}},
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:     time.Second * 5,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			log.Error().
				Int32("code", exception.Code).
				Str("message", exception.Message).
				Msg("ClickHouse ping failed")
		}
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Info().Str("addr", options.Addr[0]).Msg("connected to ClickHouse")
	return &ClickHouseClient{Conn: conn}, nil
}

// EnsureTable creates the page_views table. Rows are versioned: an exit for an
// open entry inserts a newer version of the same id, and reads use FINAL so a
// reader only ever sees one whole version.
func (c *ClickHouseClient) EnsureTable(ctx context.Context) error {
	if err := c.Conn.Exec(ctx, clickhousePageViewsTable); err != nil {
		return fmt.Errorf("failed ensuring clickhouse table: %w", err)
	}
	log.Debug().Msg("clickhouse page_views table ensured")
	return nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		log.Info().Msg("ClickHouse connection closed")
	}
}
