package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

func messageEvent(m *discordgo.Message, channelName string) *platform.Event {
	msg := &platform.Message{
		Ref:         db.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID},
		ChannelName: channelName,
		Content:     m.Content,
		IsDirect:    m.GuildID == "",
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		channelID := ref.ChannelID
		if channelID == "" {
			channelID = m.ChannelID
		}
		msg.ReplyTo = &db.MessageRef{ChannelID: channelID, MessageID: ref.MessageID}
	}
	at := m.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return &platform.Event{Message: msg, At: at}
}

func reactionEvent(r *discordgo.MessageReaction) *platform.Event {
	return &platform.Event{
		Reaction: &platform.Reaction{
			Ref:      db.MessageRef{ChannelID: r.ChannelID, MessageID: r.MessageID},
			MemberID: r.UserID,
			Emoji:    r.Emoji.Name,
			IsDirect: r.GuildID == "",
		},
		At: time.Now(),
	}
}

func joinEvent(m *discordgo.Member) *platform.Event {
	at := m.JoinedAt
	if at.IsZero() {
		at = time.Now()
	}
	return &platform.Event{Join: &platform.MemberJoin{MemberID: m.User.ID}, At: at}
}

func toEmbed(e platform.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return embed
}
