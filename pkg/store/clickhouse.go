package store

import (
	"crypto/tls"
	"database/sql"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouse struct {
	Connection *sql.DB
}

// Config names the ClickHouse endpoint backing the performance/subscription
// reports (spec.md §4.11). TLS is opt-in since the reporting warehouse
// typically sits on a private network alongside the server.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	UseTLS   bool
}

func New(cfg Config) (*ClickHouse, error) {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "bistro-server", Version: "1.0"},
			},
		},
	}
	if cfg.UseTLS {
		opts.TLS = &tls.Config{}
	}

	conn := clickhouse.OpenDB(opts)
	conn.SetMaxIdleConns(5)
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &ClickHouse{
		Connection: conn,
	}, nil
}

func (ch *ClickHouse) Close() error {
	return ch.Connection.Close()
}
