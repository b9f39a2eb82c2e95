package base

import (
	"context"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

// FlashTTL is how long short-lived channel replies stay visible.
const FlashTTL = 5 * time.Second

type (
	// Notifier queues outbound messages.
	Notifier interface {
		Channel(channelID, text string)
		Direct(memberID, text, fallbackChannelID string)
		Delete(ref db.MessageRef)
	}

	// Channels names the channels the marketplace lives in.
	Channels struct {
		Market     string
		Transcript string
		General    string
		// TranscriptID receives audit notices and DM failure reports.
		TranscriptID string
	}

	// BaseHandler provides common functionality for all handlers
	BaseHandler struct {
		messenger platform.Messenger
		notifier  Notifier
		channels  Channels
		language  string
		logger    *log.Entry
		after     func(time.Duration, func())
	}
)

// NewBaseHandler creates a new base handler
func NewBaseHandler(messenger platform.Messenger, notifier Notifier, channels Channels, language, handlerName string) *BaseHandler {
	return &BaseHandler{
		messenger: messenger,
		notifier:  notifier,
		channels:  channels,
		language:  language,
		logger:    log.WithField("handler", handlerName),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// GetLogger returns the handler's logger
func (h *BaseHandler) GetLogger() *log.Entry {
	return h.logger
}

func (h *BaseHandler) Messenger() platform.Messenger {
	return h.messenger
}

func (h *BaseHandler) Notifier() Notifier {
	return h.notifier
}

func (h *BaseHandler) Channels() Channels {
	return h.channels
}

func (h *BaseHandler) Language() string {
	return h.language
}

// SetAfter replaces the timer used for flash replies.
func (h *BaseHandler) SetAfter(after func(time.Duration, func())) {
	h.after = after
}

// T translates key and renders it with data.
func (h *BaseHandler) T(key string, data map[string]any) string {
	text := i18n.Get(key, h.language)
	if data == nil {
		return text
	}
	return tool.ExecTemplate(text, data)
}

// Say posts text to channelID and keeps it.
func (h *BaseHandler) Say(channelID, text string) {
	h.notifier.Channel(channelID, text)
}

// Flash posts text to channelID and removes it after FlashTTL.
func (h *BaseHandler) Flash(ctx context.Context, channelID, text string) {
	ref, err := h.messenger.Send(ctx, channelID, text)
	if err != nil {
		h.logger.WithField("error", err.Error()).Warn("cant send reply")
		return
	}
	h.after(FlashTTL, func() { h.notifier.Delete(ref) })
}

// Tell DMs memberID; an unreachable member is reported to the transcript channel.
func (h *BaseHandler) Tell(memberID, text string) {
	h.notifier.Direct(memberID, text, h.channels.TranscriptID)
}

// Whisper DMs memberID and drops the text when the member is unreachable.
func (h *BaseHandler) Whisper(memberID, text string) {
	h.notifier.Direct(memberID, text, "")
}

// Discard deletes the triggering message, best effort.
func (h *BaseHandler) Discard(ctx context.Context, ref db.MessageRef) {
	if err := h.messenger.Delete(ctx, ref); err != nil {
		h.logger.WithField("message", ref.MessageID).WithField("error", err.Error()).Debug("cant delete message")
	}
}

// DeliveryFailure renders the transcript notice posted when a DM cannot be delivered.
func DeliveryFailure(language string) func(memberID, text string) string {
	return func(memberID, text string) string {
		return tool.ExecTemplate(i18n.Get("⚠️ Failed to send a DM to {{ .member }}: {{ .text }}", language), map[string]any{
			"member": platform.Mention(memberID),
			"text":   text,
		})
	}
}
