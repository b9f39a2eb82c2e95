package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
)

type Entry = db.JournalEntry

// Memo describes why points move.
type Memo struct {
	Reason    string
	Reference string
}

const (
	ReasonWelcome       = "welcome"
	ReasonDaily         = "daily"
	ReasonEscrowOpen    = "escrow_open"
	ReasonEscrowRelease = "escrow_release"
	ReasonEscrowConsume = "escrow_consume"
	ReasonPayment       = "payment"
	ReasonPayout        = "payout"
	ReasonSubsidyRefund = "subsidy_refund"
	ReasonGift          = "gift"
	ReasonGiftTax       = "gift_tax"
	ReasonAdjustment    = "adjustment"

	escrowPrefix = "escrow_"
)

func EscrowAccount(requestID string) string {
	return escrowPrefix + requestID
}

func IsEscrowAccount(account string) bool {
	return len(account) > len(escrowPrefix) && account[:len(escrowPrefix)] == escrowPrefix
}

// Round normalizes amounts to one fractional digit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(1)
}

// Book is the points document of one transaction plus the movements applied to it.
type Book struct {
	points  db.Points
	entries []Entry
	now     time.Time
}

func NewBook(points db.Points, now time.Time) *Book {
	if points == nil {
		points = db.Points{}
	}
	return &Book{points: points, now: now}
}

func (b *Book) Balance(account string) decimal.Decimal {
	return b.points[account]
}

func (b *Book) Points() db.Points {
	return b.points
}

func (b *Book) Entries() []Entry {
	return b.entries
}

func (b *Book) Dirty() bool {
	return len(b.entries) > 0
}

func (b *Book) apply(account string, delta decimal.Decimal, memo Memo) {
	b.points[account] = Round(b.points[account].Add(delta))
	b.entries = append(b.entries, Entry{
		Account:   account,
		Delta:     delta,
		Reason:    memo.Reason,
		Reference: memo.Reference,
		CreatedAt: b.now,
	})
}

func validAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative amount %s: %w", amount, errors.ErrValidation)
	}
	return nil
}

func (b *Book) Credit(account string, amount decimal.Decimal, memo Memo) error {
	amount = Round(amount)
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	b.apply(account, amount, memo)
	return nil
}

func (b *Book) Debit(account string, amount decimal.Decimal, memo Memo) error {
	amount = Round(amount)
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	if b.points[account].LessThan(amount) {
		return fmt.Errorf("debit %s from %s holding %s: %w", amount, account, b.points[account], errors.ErrInsufficientFunds)
	}
	b.apply(account, amount.Neg(), memo)
	return nil
}

func (b *Book) Hold(requestID string) decimal.Decimal {
	return b.points[EscrowAccount(requestID)]
}

func (b *Book) OpenEscrow(requestID, requester string, amount decimal.Decimal) error {
	memo := Memo{Reason: ReasonEscrowOpen, Reference: requestID}
	if err := b.Debit(requester, amount, memo); err != nil {
		return err
	}
	return b.Credit(EscrowAccount(requestID), amount, memo)
}

// ReleaseEscrow returns the residual hold to the requester and removes the hold.
func (b *Book) ReleaseEscrow(requestID, requester string) decimal.Decimal {
	account := EscrowAccount(requestID)
	residual := b.points[account]
	if residual.IsPositive() {
		memo := Memo{Reason: ReasonEscrowRelease, Reference: requestID}
		b.apply(account, residual.Neg(), memo)
		b.apply(requester, residual, memo)
	}
	delete(b.points, account)
	return residual
}

// ConsumeEscrow takes up to amount from the hold and returns what was taken.
func (b *Book) ConsumeEscrow(requestID string, amount decimal.Decimal) decimal.Decimal {
	account := EscrowAccount(requestID)
	taken := decimal.Min(Round(amount), b.points[account])
	if !taken.IsPositive() {
		return decimal.Zero
	}
	b.apply(account, taken.Neg(), Memo{Reason: ReasonEscrowConsume, Reference: requestID})
	return taken
}

// Transfer debits from and credits to the same amount.
func (b *Book) Transfer(from, to string, amount decimal.Decimal, memo Memo) error {
	if err := b.Debit(from, amount, memo); err != nil {
		return err
	}
	return b.Credit(to, amount, memo)
}
