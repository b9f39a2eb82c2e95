package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
)

var (
	giftTaxFlat      = decimal.NewFromInt(1)
	giftTaxThreshold = decimal.NewFromInt(10)
	giftTaxRate      = decimal.RequireFromString("0.2")
)

// GiftTax is 1 below 10 points, 20% (at least 1) from there on.
func GiftTax(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThan(giftTaxThreshold) {
		return giftTaxFlat
	}
	return decimal.Max(giftTaxFlat, Round(amount.Mul(giftTaxRate)))
}

// GiftReceipt reports a completed gift.
type GiftReceipt struct {
	Amount decimal.Decimal
	Tax    decimal.Decimal
	Cost   decimal.Decimal
}

// Gift moves amount from giver to receiver, burns the tax and counts the gift
// towards the giver's benefactor standing.
func (l *Ledger) Gift(ctx context.Context, giver, receiver string, amount decimal.Decimal) (GiftReceipt, error) {
	if giver == receiver {
		return GiftReceipt{}, fmt.Errorf("gift to self: %w", errors.ErrValidation)
	}
	if amount.LessThan(decimal.NewFromInt(1)) {
		return GiftReceipt{}, fmt.Errorf("gift below 1 point: %w", errors.ErrValidation)
	}
	receipt := GiftReceipt{Amount: Round(amount), Tax: GiftTax(amount)}
	receipt.Cost = receipt.Amount.Add(receipt.Tax)

	err := l.Do(ctx, func(tx db.Tx, book *Book) error {
		if book.Balance(giver).LessThan(receipt.Cost) {
			return fmt.Errorf("gift of %s costs %s: %w", receipt.Amount, receipt.Cost, errors.ErrInsufficientFunds)
		}
		if err := book.Transfer(giver, receiver, receipt.Amount, Memo{Reason: ReasonGift, Reference: receiver}); err != nil {
			return err
		}
		if err := book.Debit(giver, receipt.Tax, Memo{Reason: ReasonGiftTax}); err != nil {
			return err
		}
		var gifts db.GiverCounts
		if err := tx.Load(db.DocGiverCount, &gifts); err != nil {
			return err
		}
		gifts.Record(giver, receipt.Amount)
		return tx.Save(db.DocGiverCount, gifts)
	})
	if err != nil {
		return GiftReceipt{}, err
	}
	return receipt, nil
}
