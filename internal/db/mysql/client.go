package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/iamwavecut/pasarbot/internal/db"
)

var _ db.DocumentStore = (*Client)(nil)

type document struct {
	Name      string `gorm:"primaryKey;size:64"`
	Body      string `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

func (document) TableName() string { return "documents" }

type Client struct {
	gdb   *gorm.DB
	mutex sync.Mutex
}

func NewMySQLClient(ctx context.Context, dsn string) (*Client, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	gormLogger := logger.New(
		log.WithField("component", "store"),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := gdb.WithContext(ctx).AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &Client{gdb: gdb}, nil
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}

func load(gdb *gorm.DB, doc string, v any, lock bool) error {
	var row document
	q := gdb
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("name = ?", doc).Take(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load document %s: %w", doc, err)
	}
	db.Decode(doc, []byte(row.Body), v)
	return nil
}

func save(gdb *gorm.DB, doc string, v any) error {
	body, err := db.Encode(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc, err)
	}
	row := document{Name: doc, Body: string(body), UpdatedAt: time.Now()}
	err = gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc, err)
	}
	return nil
}

func (c *Client) Read(ctx context.Context, doc string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return load(c.gdb.WithContext(ctx), doc, v, false)
}

func (c *Client) Write(ctx context.Context, doc string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return save(c.gdb.WithContext(ctx), doc, v)
}

// Transact row-locks every loaded document until commit.
func (c *Client) Transact(ctx context.Context, fn func(tx db.Tx) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.gdb.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&docTx{gtx: gtx})
	})
}

func (c *Client) Close() error {
	sqlDB, err := c.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type docTx struct {
	gtx *gorm.DB
}

func (t *docTx) Load(doc string, v any) error {
	return load(t.gtx, doc, v, true)
}

func (t *docTx) Save(doc string, v any) error {
	return save(t.gtx, doc, v)
}
