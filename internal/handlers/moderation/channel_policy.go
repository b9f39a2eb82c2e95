package moderation

import (
	"context"
	"strings"

	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

// ChannelPolicy keeps the market and transcript channels command-only.
type ChannelPolicy struct {
	*base.BaseHandler
}

func NewChannelPolicy(b *base.BaseHandler) *ChannelPolicy {
	return &ChannelPolicy{BaseHandler: b}
}

func (p *ChannelPolicy) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	msg := ev.Message
	if msg == nil || msg.IsDirect {
		return true, nil
	}
	channels := p.Channels()
	content := strings.TrimSpace(msg.Content)

	switch msg.ChannelName {
	case channels.Transcript:
		if strings.HasPrefix(content, "!") {
			return true, nil
		}
		p.Discard(ctx, msg.Ref)
		p.Whisper(msg.AuthorID, p.T(
			"❌ In #{{ .channel }} you may only send commands:\n"+
				"• `!saldo` → check your points\n"+
				"• `!givepoint @user [amount]` → give points to someone else",
			map[string]any{"channel": channels.Transcript},
		))
		return false, nil
	case channels.Market:
		if strings.HasPrefix(content, "!beli") || strings.HasPrefix(content, "!ambil") {
			return true, nil
		}
		p.Discard(ctx, msg.Ref)
		p.Whisper(msg.AuthorID, p.T(
			"❌ In #{{ .channel }} you may only send `!beli` or reply to an embed with `!ambil ...`. Your message was deleted.",
			map[string]any{"channel": channels.Market},
		))
		return false, nil
	}
	return true, nil
}
