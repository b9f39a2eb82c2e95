package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
)

var prices = map[db.TaskType]decimal.Decimal{
	db.TaskLike:    decimal.RequireFromString("0.5"),
	db.TaskComment: decimal.RequireFromString("1.0"),
	db.TaskRetweet: decimal.RequireFromString("1.5"),
	db.TaskFollow:  decimal.RequireFromString("2.0"),
}

func Price(t db.TaskType) (decimal.Decimal, bool) {
	p, ok := prices[t]
	return p, ok
}

// UserPays is what a requester is charged for price; benefactors pay half.
func UserPays(price decimal.Decimal, benefactor bool) decimal.Decimal {
	if benefactor {
		return Round(price.Div(decimal.NewFromInt(2)))
	}
	return Round(price)
}

// Subsidy is the part of price the system covers for the requester.
func Subsidy(price, userPays decimal.Decimal) decimal.Decimal {
	return Round(price.Sub(userPays))
}
