package chat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

type (
	DailyQuota interface {
		Claim(member string, balance decimal.Decimal) bool
		Forget(member string)
	}

	RewardsConfig struct {
		WelcomeBonus decimal.Decimal
		DailyReward  decimal.Decimal
		DailyBelow   decimal.Decimal
	}

	// Rewards grants the welcome bonus on join and the daily activity reward in general.
	Rewards struct {
		*base.BaseHandler
		points Points
		daily  DailyQuota
		cfg    RewardsConfig
	}
)

func NewRewards(b *base.BaseHandler, points Points, daily DailyQuota, cfg RewardsConfig) *Rewards {
	return &Rewards{BaseHandler: b, points: points, daily: daily, cfg: cfg}
}

func (r *Rewards) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	switch {
	case ev.Join != nil:
		return false, r.welcome(ctx, ev.Join.MemberID)
	case ev.Message != nil && !ev.Message.IsDirect && ev.Message.ChannelName == r.Channels().General:
		return true, r.activity(ctx, ev.Message.AuthorID)
	}
	return true, nil
}

func (r *Rewards) welcome(ctx context.Context, member string) error {
	var balance decimal.Decimal
	err := r.points.Do(ctx, func(_ db.Tx, book *ledger.Book) error {
		if err := book.Credit(member, r.cfg.WelcomeBonus, ledger.Memo{Reason: ledger.ReasonWelcome}); err != nil {
			return err
		}
		balance = book.Balance(member)
		return nil
	})
	if err != nil {
		return errors.WithMessage(err, "cant grant welcome bonus")
	}
	r.Say(r.Channels().TranscriptID, r.T("✨ {{ .member }} received **{{ .amount }} points** for joining! Balance: **{{ .balance }}**", map[string]any{
		"member":  platform.Mention(member),
		"amount":  r.cfg.WelcomeBonus.String(),
		"balance": balance.String(),
	}))
	return nil
}

func (r *Rewards) activity(ctx context.Context, member string) error {
	granted := false
	err := r.points.Do(ctx, func(_ db.Tx, book *ledger.Book) error {
		// a retried transaction keeps the claim taken by the first attempt
		if !granted && !r.daily.Claim(member, book.Balance(member)) {
			return nil
		}
		granted = true
		return book.Credit(member, r.cfg.DailyReward, ledger.Memo{Reason: ledger.ReasonDaily})
	})
	if err != nil {
		if granted {
			r.daily.Forget(member)
		}
		return errors.WithMessage(err, "cant grant daily reward")
	}
	if granted {
		r.Whisper(member, r.T("🎁 You received **{{ .amount }} points** for activity in #{{ .channel }}! (Only while your balance is below {{ .below }})", map[string]any{
			"amount":  r.cfg.DailyReward.String(),
			"channel": r.Channels().General,
			"below":   r.cfg.DailyBelow.String(),
		}))
	}
	return nil
}
