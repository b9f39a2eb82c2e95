package chat

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	perrors "github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

// Reactions turns display emblems into engagement claims and DM emblems into verdicts.
type Reactions struct {
	*base.BaseHandler
	market   Market
	verdicts Verdicts
}

func NewReactions(b *base.BaseHandler, m Market, verdicts Verdicts) *Reactions {
	return &Reactions{BaseHandler: b, market: m, verdicts: verdicts}
}

func (r *Reactions) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	reaction := ev.Reaction
	if reaction == nil {
		return true, nil
	}
	if reaction.IsDirect {
		return false, r.verdict(ctx, reaction)
	}
	return false, r.engage(ctx, reaction)
}

func (r *Reactions) verdict(ctx context.Context, reaction *platform.Reaction) error {
	var approved bool
	switch reaction.Emoji {
	case platform.EmblemApprove:
		approved = true
	case platform.EmblemReject:
	default:
		return nil
	}
	settled, err := r.verdicts.Resolve(ctx, reaction.Ref, reaction.MemberID, approved)
	if err != nil {
		return errors.WithMessage(err, "cant resolve verification")
	}
	if settled {
		r.GetLogger().WithFields(log.Fields{
			"member":   reaction.MemberID,
			"approved": approved,
		}).Debug("verification resolved by reaction")
	}
	return nil
}

func (r *Reactions) revert(ctx context.Context, reaction *platform.Reaction) {
	if err := r.Messenger().RemoveReaction(ctx, reaction.Ref, reaction.Emoji, reaction.MemberID); err != nil {
		r.GetLogger().WithField("error", err.Error()).Debug("cant remove reaction")
	}
}

func (r *Reactions) engage(ctx context.Context, reaction *platform.Reaction) error {
	req, err := r.market.RequestByDisplay(ctx, reaction.Ref)
	if errors.Is(err, perrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.WithMessage(err, "cant look up display")
	}

	if !slices.Contains(platform.EngagementEmblems, reaction.Emoji) {
		r.revert(ctx, reaction)
		r.Whisper(reaction.MemberID, r.T("❌ Only ❤️, 🔁 and 👥 reactions are allowed.", nil))
		return nil
	}

	err = r.market.ClaimEngagement(ctx, reaction.MemberID, reaction.Ref, reaction.Emoji)
	if err == nil || errors.Is(err, perrors.ErrNotFound) {
		return nil
	}
	if !errors.Is(err, perrors.ErrEligibilityDenied) {
		return errors.WithMessage(err, "cant claim engagement")
	}

	r.revert(ctx, reaction)
	taskType, _ := platform.TaskForEmblem(reaction.Emoji)
	var text string
	switch {
	case errors.Is(err, perrors.ErrSelfDealing):
		text = r.T("❌ You can't react to your own post.", nil)
	case errors.Is(err, perrors.ErrFollowRequired):
		text = r.T("🔒 You must follow {{ .requester }} and complete verification before helping with their engagement.", map[string]any{
			"requester": platform.Mention(req.RequesterID),
		})
	case taskType == db.TaskFollow:
		text = r.T("❌ You have already followed this account before (once per lifetime).", nil)
	default:
		text = r.T("❌ You have already claimed {{ .task }} on this post before.", map[string]any{"task": taskType})
	}
	r.Whisper(reaction.MemberID, text)
	return nil
}
