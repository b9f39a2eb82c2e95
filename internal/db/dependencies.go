package db

import "context"

type (
	// Tx is a read-modify-write view over documents inside one transaction.
	Tx interface {
		Load(doc string, v any) error
		Save(doc string, v any) error
	}

	DocumentStore interface {
		Read(ctx context.Context, doc string, v any) error
		Write(ctx context.Context, doc string, v any) error
		// Transact runs fn atomically; nothing is written when fn fails.
		// fn may be invoked again when a backend detects a conflict.
		Transact(ctx context.Context, fn func(tx Tx) error) error
		Close() error
	}

	Journal interface {
		AppendJournal(ctx context.Context, entries []JournalEntry) error
		JournalFor(ctx context.Context, account string, limit int) ([]JournalEntry, error)
	}
)
