package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/pasarbot/internal/db"
)

const upsertDocument = `
	INSERT INTO documents (name, body, updated_at)
	VALUES (?, ?, datetime('now'))
	ON CONFLICT(name) DO UPDATE SET
	body = excluded.body,
	updated_at = excluded.updated_at
`

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func load(ctx context.Context, q queryer, doc string, v any) error {
	var body string
	err := q.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = ?`, doc)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load document %s: %w", doc, err)
	}
	db.Decode(doc, []byte(body), v)
	return nil
}

func save(ctx context.Context, q queryer, doc string, v any) error {
	body, err := db.Encode(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc, err)
	}
	if _, err := q.ExecContext(ctx, upsertDocument, doc, string(body)); err != nil {
		return fmt.Errorf("save document %s: %w", doc, err)
	}
	return nil
}

func (c *Client) Read(ctx context.Context, doc string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return load(ctx, c.db, doc, v)
}

func (c *Client) Write(ctx context.Context, doc string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return save(ctx, c.db, doc, v)
}

func (c *Client) Transact(ctx context.Context, fn func(tx db.Tx) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&docTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type docTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (t *docTx) Load(doc string, v any) error {
	return load(t.ctx, t.tx, doc, v)
}

func (t *docTx) Save(doc string, v any) error {
	return save(t.ctx, t.tx, doc, v)
}
