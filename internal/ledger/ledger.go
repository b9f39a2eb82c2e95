package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
)

type (
	// Observer receives the movements of every committed transaction.
	Observer interface {
		Observe(ctx context.Context, entries []Entry)
	}

	ObserverFunc func(ctx context.Context, entries []Entry)

	Ledger struct {
		store     db.DocumentStore
		clock     func() time.Time
		mu        sync.RWMutex
		observers []Observer
	}
)

func (f ObserverFunc) Observe(ctx context.Context, entries []Entry) { f(ctx, entries) }

func New(store db.DocumentStore, observers ...Observer) *Ledger {
	return &Ledger{
		store:     store,
		clock:     time.Now,
		observers: observers,
	}
}

func (l *Ledger) SetClock(clock func() time.Time) {
	l.clock = clock
}

func (l *Ledger) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Do runs fn inside one store transaction with the points document loaded
// into book. Movements are published after commit.
func (l *Ledger) Do(ctx context.Context, fn func(tx db.Tx, book *Book) error) error {
	var entries []Entry
	err := l.store.Transact(ctx, func(tx db.Tx) error {
		var points db.Points
		if err := tx.Load(db.DocPoints, &points); err != nil {
			return err
		}
		book := NewBook(points, l.clock())
		if err := fn(tx, book); err != nil {
			return err
		}
		if book.Dirty() {
			if err := tx.Save(db.DocPoints, book.Points()); err != nil {
				return err
			}
		}
		entries = book.Entries()
		return nil
	})
	if err != nil {
		return err
	}
	l.publish(ctx, entries)
	return nil
}

func (l *Ledger) publish(ctx context.Context, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	l.mu.RLock()
	observers := append([]Observer(nil), l.observers...)
	l.mu.RUnlock()
	for _, o := range observers {
		o.Observe(ctx, entries)
	}
}

func (l *Ledger) Balance(ctx context.Context, member string) (decimal.Decimal, error) {
	points, err := l.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return points[member], nil
}

func (l *Ledger) Balances(ctx context.Context) (db.Points, error) {
	var points db.Points
	if err := l.store.Read(ctx, db.DocPoints, &points); err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	return points, nil
}

// Credit grants amount to member in its own transaction.
func (l *Ledger) Credit(ctx context.Context, member string, amount decimal.Decimal, memo Memo) error {
	return l.Do(ctx, func(_ db.Tx, book *Book) error {
		return book.Credit(member, amount, memo)
	})
}

// Adjust applies a signed operator correction; the balance never goes below zero.
func (l *Ledger) Adjust(ctx context.Context, member string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.Do(ctx, func(_ db.Tx, book *Book) error {
		memo := Memo{Reason: ReasonAdjustment}
		var err error
		if delta.IsNegative() {
			err = book.Debit(member, delta.Neg(), memo)
		} else {
			err = book.Credit(member, delta, memo)
		}
		balance = book.Balance(member)
		return err
	})
	if err == nil {
		log.WithField("component", "ledger").
			WithField("member", member).
			WithField("delta", delta.String()).
			Info("balance adjusted")
	}
	return balance, err
}

// Members lists member accounts touched by entries, escrow holds excluded.
func Members(entries []Entry) []string {
	seen := map[string]struct{}{}
	var members []string
	for _, e := range entries {
		if IsEscrowAccount(e.Account) {
			continue
		}
		if _, ok := seen[e.Account]; ok {
			continue
		}
		seen[e.Account] = struct{}{}
		members = append(members, e.Account)
	}
	return members
}
