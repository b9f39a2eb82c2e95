package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestReadMissingDocumentYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	var requests db.Requests
	if err := client.Read(context.Background(), db.DocRequests, &requests); err != nil {
		t.Fatalf("read: %v", err)
	}
	if requests == nil || len(requests) != 0 {
		t.Fatalf("expected empty requests, got %#v", requests)
	}
}

func TestReadUnparsableDocumentYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	if _, err := client.db.ExecContext(ctx, upsertDocument, db.DocPoints, "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var points db.Points
	if err := client.Read(ctx, db.DocPoints, &points); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty points, got %v", points)
	}
}

func TestWriteReplacesWholeDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	if err := client.Write(ctx, db.DocPoints, db.Points{"a": decimal.NewFromInt(1), "b": decimal.NewFromInt(2)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := client.Write(ctx, db.DocPoints, db.Points{"c": decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var points db.Points
	if err := client.Read(ctx, db.DocPoints, &points); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(points) != 1 || !points["c"].Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected points: %v", points)
	}
}

func TestTransactRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	boom := errors.New("boom")
	err := client.Transact(ctx, func(tx db.Tx) error {
		if err := tx.Save(db.DocPoints, db.Points{"a": decimal.NewFromInt(5)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var points db.Points
	if err := client.Read(ctx, db.DocPoints, &points); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected nothing written, got %v", points)
	}
}

func TestTransactSerializesReadModifyWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.Transact(ctx, func(tx db.Tx) error {
				var points db.Points
				if err := tx.Load(db.DocPoints, &points); err != nil {
					return err
				}
				points["m"] = points["m"].Add(decimal.RequireFromString("0.5"))
				return tx.Save(db.DocPoints, points)
			})
			if err != nil {
				t.Errorf("transact: %v", err)
			}
		}()
	}
	wg.Wait()

	var points db.Points
	if err := client.Read(ctx, db.DocPoints, &points); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !points["m"].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("lost update: got %s want 10", points["m"])
	}
}

func TestJournalAppendAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	now := time.Now().UTC().Truncate(time.Second)
	entries := []db.JournalEntry{
		{Account: "m1", Delta: decimal.NewFromInt(10), Reason: "welcome", CreatedAt: now},
		{Account: "m1", Delta: decimal.RequireFromString("-1.5"), Reason: "claim", Reference: "r1", CreatedAt: now},
		{Account: "m2", Delta: decimal.NewFromInt(2), Reason: "daily", CreatedAt: now},
	}
	if err := client.AppendJournal(ctx, entries); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := client.JournalFor(ctx, "m1", 10)
	if err != nil {
		t.Fatalf("journal for: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Reason != "claim" || !got[0].Delta.Equal(decimal.RequireFromString("-1.5")) {
		t.Fatalf("unexpected newest entry: %#v", got[0])
	}
}
