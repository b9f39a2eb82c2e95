package event

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

const (
	TypeChannelMessage = "channel_message"
	TypeDirectMessage  = "direct_message"
	TypeDeleteMessage  = "delete_message"

	notificationTTL = 10 * time.Minute
)

type (
	ChannelMessage struct {
		Base
		ChannelID string
		Text      string
	}

	DirectMessage struct {
		Base
		MemberID string
		Text     string
		// FallbackChannelID receives a delivery failure notice.
		FallbackChannelID string
	}

	DeleteMessage struct {
		Base
		Ref db.MessageRef
	}

	// Notifier queues outbound messages so callers never wait on the platform.
	Notifier struct {
		d *Dispatcher
	}
)

func NewNotifier(d *Dispatcher, messenger platform.Messenger, failureText func(memberID, text string) string) *Notifier {
	entry := log.WithField("component", "notifier")
	d.Subscribe(TypeChannelMessage, func(ctx context.Context, e Queueable) {
		msg := e.(*ChannelMessage)
		if _, err := messenger.Send(ctx, msg.ChannelID, msg.Text); err != nil {
			entry.WithField("channel", msg.ChannelID).WithField("error", err.Error()).Warn("cant deliver channel message")
		}
	})
	d.Subscribe(TypeDirectMessage, func(ctx context.Context, e Queueable) {
		msg := e.(*DirectMessage)
		if _, err := messenger.SendDirect(ctx, msg.MemberID, msg.Text); err != nil {
			entry.WithField("member", msg.MemberID).WithField("error", err.Error()).Info("cant deliver direct message")
			if msg.FallbackChannelID != "" && failureText != nil {
				if _, err := messenger.Send(ctx, msg.FallbackChannelID, failureText(msg.MemberID, msg.Text)); err != nil {
					entry.WithField("error", err.Error()).Warn("cant deliver failure notice")
				}
			}
		}
	})
	d.Subscribe(TypeDeleteMessage, func(ctx context.Context, e Queueable) {
		msg := e.(*DeleteMessage)
		if err := messenger.Delete(ctx, msg.Ref); err != nil {
			entry.WithField("message", msg.Ref.MessageID).WithField("error", err.Error()).Debug("cant delete message")
		}
	})
	return &Notifier{d: d}
}

func (n *Notifier) Channel(channelID, text string) {
	n.d.Enqueue(&ChannelMessage{
		Base:      CreateBase(TypeChannelMessage, time.Now().Add(notificationTTL)),
		ChannelID: channelID,
		Text:      text,
	})
}

// Direct queues a DM; when it cannot be delivered a notice goes to fallbackChannelID.
func (n *Notifier) Direct(memberID, text, fallbackChannelID string) {
	n.d.Enqueue(&DirectMessage{
		Base:              CreateBase(TypeDirectMessage, time.Now().Add(notificationTTL)),
		MemberID:          memberID,
		Text:              text,
		FallbackChannelID: fallbackChannelID,
	})
}

func (n *Notifier) Delete(ref db.MessageRef) {
	if ref.IsZero() {
		return
	}
	n.d.Enqueue(&DeleteMessage{
		Base: CreateBase(TypeDeleteMessage, time.Time{}),
		Ref:  ref,
	})
}
