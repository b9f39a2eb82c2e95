package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
)

func TestGiftTax(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"1":  "1",
		"9":  "1",
		"10": "2",
		"12": "2.4",
		"25": "5",
	}
	for amount, want := range cases {
		assert.True(t, d(want).Equal(GiftTax(d(amount))), "tax of %s", amount)
	}
}

func TestGiftMovesAmountBurnsTaxAndCounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	l := New(store)
	require.NoError(t, l.Credit(ctx, "g", decimal.NewFromInt(20), Memo{Reason: ReasonWelcome}))

	receipt, err := l.Gift(ctx, "g", "r", decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, d("4").Equal(receipt.Cost))

	points, err := l.Balances(ctx)
	require.NoError(t, err)
	assert.True(t, d("16").Equal(points["g"]))
	assert.True(t, d("3").Equal(points["r"]))

	var gifts db.GiverCounts
	require.NoError(t, store.Read(ctx, db.DocGiverCount, &gifts))
	assert.Equal(t, int64(1), gifts.Count("g"))
	assert.True(t, d("3").Equal(gifts.Volume("g")))
}

func TestGiftRejectsSelfAndOverdraft(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := New(newStore(t))
	require.NoError(t, l.Credit(ctx, "g", decimal.NewFromInt(3), Memo{Reason: ReasonWelcome}))

	_, err := l.Gift(ctx, "g", "g", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = l.Gift(ctx, "g", "r", decimal.NewFromInt(3))
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	balance, err := l.Balance(ctx, "g")
	require.NoError(t, err)
	assert.True(t, d("3").Equal(balance))
}
