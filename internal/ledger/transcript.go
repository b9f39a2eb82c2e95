package ledger

import (
	"context"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

type (
	ChannelPoster interface {
		Channel(channelID, text string)
	}

	BalanceReader interface {
		Balances(ctx context.Context) (db.Points, error)
	}

	// Transcript announces member credits in the transcript channel.
	// Welcome bonuses, payouts, subsidy refunds and gifts carry their own notices and are skipped.
	Transcript struct {
		poster    ChannelPoster
		balances  BalanceReader
		channelID string
		language  string
	}
)

func NewTranscript(poster ChannelPoster, balances BalanceReader, channelID, language string) *Transcript {
	return &Transcript{poster: poster, balances: balances, channelID: channelID, language: language}
}

func (t *Transcript) Observe(ctx context.Context, entries []Entry) {
	var credits []Entry
	for _, e := range entries {
		if !e.Delta.IsPositive() || IsEscrowAccount(e.Account) || t.reasonText(e.Reason) == "" {
			continue
		}
		credits = append(credits, e)
	}
	if len(credits) == 0 {
		return
	}
	points, err := t.balances.Balances(ctx)
	if err != nil {
		log.WithField("component", "transcript").WithField("error", err.Error()).Warn("cant read balances for transcript")
		return
	}
	for _, e := range credits {
		t.poster.Channel(t.channelID, tool.ExecTemplate(
			i18n.Get("✨ {{ .member }} received **{{ .amount }} points** for {{ .reason }}! Balance: **{{ .balance }}**", t.language),
			map[string]any{
				"member":  platform.Mention(e.Account),
				"amount":  e.Delta.String(),
				"reason":  t.reasonText(e.Reason),
				"balance": points[e.Account].String(),
			},
		))
	}
}

func (t *Transcript) reasonText(reason string) string {
	switch reason {
	case ReasonDaily:
		return i18n.Get("daily activity", t.language)
	case ReasonEscrowRelease:
		return i18n.Get("an expired request refund", t.language)
	case ReasonAdjustment:
		return i18n.Get("a moderator adjustment", t.language)
	}
	return ""
}
