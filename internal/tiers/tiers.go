package tiers

import (
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
)

type (
	Tier struct {
		Min  decimal.Decimal
		Role string
	}

	Standing struct {
		// Tier is the granted tier role, empty below the lowest threshold.
		Tier       string
		Benefactor bool
	}
)

// Ladder is ordered from the highest threshold down.
var Ladder = []Tier{
	{Min: decimal.NewFromInt(100), Role: "Whale"},
	{Min: decimal.NewFromInt(50), Role: "Sultan"},
	{Min: decimal.NewFromInt(9), Role: "Ekonomi Menengah"},
	{Min: decimal.NewFromInt(5), Role: "Butuh Donasi"},
}

var (
	benefactorMinCount  int64 = 200
	benefactorMinVolume       = decimal.NewFromInt(2000)
)

func Derive(balance decimal.Decimal, giftCount int64, giftVolume decimal.Decimal) Standing {
	var s Standing
	for _, tier := range Ladder {
		if balance.GreaterThanOrEqual(tier.Min) {
			s.Tier = tier.Role
			break
		}
	}
	s.Benefactor = IsBenefactor(giftCount, giftVolume)
	return s
}

func IsBenefactor(giftCount int64, giftVolume decimal.Decimal) bool {
	return giftCount >= benefactorMinCount && giftVolume.GreaterThanOrEqual(benefactorMinVolume)
}

// MemberIsBenefactor reads the benefactor status of member from gift counters.
func MemberIsBenefactor(gifts db.GiverCounts, member string) bool {
	return IsBenefactor(gifts.Count(member), gifts.Volume(member))
}

func IsTierRole(name string) bool {
	for _, tier := range Ladder {
		if tier.Role == name {
			return true
		}
	}
	return false
}
