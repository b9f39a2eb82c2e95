package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/resources"
)

var (
	_ db.DocumentStore = (*Client)(nil)
	_ db.Journal       = (*Client)(nil)
)

type Client struct {
	db    *sqlx.DB
	mutex sync.Mutex
}

// NewSQLiteClient opens dir/name and applies the embedded migrations.
func NewSQLiteClient(ctx context.Context, dir, name string) (*Client, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite serializes writers; one connection keeps the store mutex meaningful.
	dbx.SetMaxOpenConns(1)
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.WithField("component", "store").Infof("applied %d migrations", n)
	}

	return &Client{db: dbx}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
