package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/pasarbot/internal/eligibility"
	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/observability"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

type (
	Flood interface {
		Observe(member string) eligibility.Verdict
	}

	Muter interface {
		Mute(ctx context.Context, member string, d time.Duration) error
	}

	// FloodGuard mutes members posting too fast in the marketplace channels.
	FloodGuard struct {
		*base.BaseHandler
		flood Flood
		muter Muter
	}
)

func NewFloodGuard(b *base.BaseHandler, flood Flood, muter Muter) *FloodGuard {
	return &FloodGuard{BaseHandler: b, flood: flood, muter: muter}
}

func (g *FloodGuard) watched(channel string) bool {
	channels := g.Channels()
	return channel == channels.Market || channel == channels.Transcript || channel == channels.General
}

func (g *FloodGuard) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	msg := ev.Message
	if msg == nil || msg.IsDirect || !g.watched(msg.ChannelName) {
		return true, nil
	}
	verdict := g.flood.Observe(msg.AuthorID)
	if !verdict.Mute {
		return true, nil
	}
	err := g.muter.Mute(ctx, msg.AuthorID, verdict.Duration)
	switch {
	case errors.Is(err, eligibility.ErrAlreadyMuted):
		return false, nil
	case err != nil:
		return false, errors.WithMessage(err, "cant mute flooding member")
	}
	observability.RecordMute()
	g.GetLogger().
		WithField("member", msg.AuthorID).
		WithField("level", verdict.Level).
		Info("flood detected")
	g.Flash(ctx, msg.Ref.ChannelID, g.T(
		"⚠️ {{ .member }} was muted for spam! Duration: {{ .minutes }} minutes.",
		map[string]any{
			"member":  platform.Mention(msg.AuthorID),
			"minutes": int(verdict.Duration.Minutes()),
		},
	))
	return false, nil
}
