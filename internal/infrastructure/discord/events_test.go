package discord

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

func TestMessageEventCarriesReplyAndChannel(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := messageEvent(&discordgo.Message{
		ID:               "m1",
		ChannelID:        "c1",
		GuildID:          "g1",
		Content:          "!ambil 1",
		Author:           &discordgo.User{ID: "u1"},
		MessageReference: &discordgo.MessageReference{MessageID: "display"},
		Timestamp:        at,
	}, "jual-beli")

	msg := ev.Message
	if msg == nil || msg.AuthorID != "u1" || msg.ChannelName != "jual-beli" || msg.IsDirect {
		t.Fatalf("unexpected message: %#v", msg)
	}
	if msg.ReplyTo == nil || msg.ReplyTo.ChannelID != "c1" || msg.ReplyTo.MessageID != "display" {
		t.Fatalf("unexpected reply ref: %#v", msg.ReplyTo)
	}
	if !ev.At.Equal(at) {
		t.Fatalf("unexpected timestamp: %s", ev.At)
	}
}

func TestReactionEventMarksDirectMessages(t *testing.T) {
	t.Parallel()

	ev := reactionEvent(&discordgo.MessageReaction{
		UserID:    "u1",
		MessageID: "dm1",
		ChannelID: "dmc",
		Emoji:     discordgo.Emoji{Name: platform.EmblemApprove},
	})
	r := ev.Reaction
	if r == nil || !r.IsDirect || r.Emoji != platform.EmblemApprove || r.Ref.MessageID != "dm1" {
		t.Fatalf("unexpected reaction: %#v", r)
	}
}

func TestClassifyMapsRestCodes(t *testing.T) {
	t.Parallel()

	closed := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeCannotSendMessagesToThisUser},
	}
	if err := classify(fmt.Errorf("send: %w", closed)); !errors.Is(err, errors.ErrDeliveryFailure) {
		t.Fatalf("expected delivery failure, got %v", err)
	}

	gone := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
	if err := classify(gone); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	plain := fmt.Errorf("boom")
	if err := classify(plain); err != plain {
		t.Fatalf("unexpected classification: %v", err)
	}
}

func TestToEmbedSetsFooter(t *testing.T) {
	t.Parallel()

	embed := toEmbed(platform.Embed{Title: "t", Description: "d", Footer: "f", Color: 1})
	if embed.Footer == nil || embed.Footer.Text != "f" || embed.Title != "t" || embed.Color != 1 {
		t.Fatalf("unexpected embed: %#v", embed)
	}
	if toEmbed(platform.Embed{}).Footer != nil {
		t.Fatalf("empty footer must be omitted")
	}
}
