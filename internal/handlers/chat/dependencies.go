package chat

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/market"
)

type (
	Market interface {
		Buy(ctx context.Context, in market.BuyInput) (*db.Request, error)
		ClaimComment(ctx context.Context, member string, display db.MessageRef, number int) error
		ClaimEngagement(ctx context.Context, member string, display db.MessageRef, emblem string) error
		RequestByDisplay(ctx context.Context, ref db.MessageRef) (*db.Request, error)
	}

	Points interface {
		Do(ctx context.Context, fn func(tx db.Tx, book *ledger.Book) error) error
		Balance(ctx context.Context, member string) (decimal.Decimal, error)
		Credit(ctx context.Context, member string, amount decimal.Decimal, memo ledger.Memo) error
		Adjust(ctx context.Context, member string, delta decimal.Decimal) (decimal.Decimal, error)
		Gift(ctx context.Context, giver, receiver string, amount decimal.Decimal) (ledger.GiftReceipt, error)
	}

	// Verdicts settles verification DMs from reactions.
	Verdicts interface {
		Resolve(ctx context.Context, ref db.MessageRef, memberID string, approved bool) (bool, error)
	}

	GiftQuota interface {
		Take(member string) error
		Refund(member string)
	}

	Privilege interface {
		Require(ctx context.Context, memberID string) error
		RoleName() string
	}
)
