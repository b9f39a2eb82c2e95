package sqlite

import (
	"context"
	"fmt"

	"github.com/iamwavecut/pasarbot/internal/db"
)

func (c *Client) AppendJournal(ctx context.Context, entries []db.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO ledger_journal (account, delta, reason, reference, created_at)
		VALUES (:account, :delta, :reason, :reference, :created_at)
	`
	if _, err := c.db.NamedExecContext(ctx, query, entries); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// JournalFor returns the latest entries of account, newest first.
func (c *Client) JournalFor(ctx context.Context, account string, limit int) ([]db.JournalEntry, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var entries []db.JournalEntry
	err := c.db.SelectContext(ctx, &entries, `
		SELECT account, delta, reason, reference, created_at
		FROM ledger_journal
		WHERE account = ?
		ORDER BY id DESC
		LIMIT ?
	`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	return entries, nil
}
