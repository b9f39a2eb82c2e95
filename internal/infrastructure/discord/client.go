// Package discord adapts a discordgo session to the platform boundary.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/platform"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

var _ platform.Platform = (*Client)(nil)

type Client struct {
	session *discordgo.Session
	guildID string
	sink    platform.Sink

	mu         sync.Mutex
	runtimeCtx context.Context
	cancel     context.CancelFunc
	started    bool
	removers   []func()
}

// New prepares a session for token; guildID scopes role and channel lookups.
func New(token, guildID string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = intents
	session.StateEnabled = true
	return &Client{session: session, guildID: guildID}, nil
}

func (c *Client) getLogEntry() *log.Entry {
	return log.WithField("component", "discord")
}

// SetSink routes inbound events to sink; it must be called before Start.
func (c *Client) SetSink(sink platform.Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.runtimeCtx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.removers = append(c.removers,
		c.session.AddHandler(c.onReady),
		c.session.AddHandler(c.onMessageCreate),
		c.session.AddHandler(c.onReactionAdd),
		c.session.AddHandler(c.onMemberAdd),
	)
	if err := c.session.Open(); err != nil {
		c.cancel()
		for _, remove := range c.removers {
			remove()
		}
		c.removers = nil
		return fmt.Errorf("open discord session: %w", err)
	}
	c.started = true
	return nil
}

func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	c.cancel()
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (c *Client) emit(ev *platform.Event) {
	c.mu.Lock()
	sink, ctx := c.sink, c.runtimeCtx
	c.mu.Unlock()
	if sink == nil || ctx == nil || ctx.Err() != nil {
		return
	}
	sink(ctx, ev)
}

func (c *Client) botID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Client) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.getLogEntry().WithField("user", r.User.Username).WithField("guilds", len(r.Guilds)).Info("connected")
}

func (c *Client) channelName(channelID string) string {
	if ch, err := c.session.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := c.session.Channel(channelID)
	if err != nil {
		c.getLogEntry().WithField("channel", channelID).WithField("error", err.Error()).Debug("cant resolve channel name")
		return ""
	}
	return ch.Name
}

func (c *Client) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (c.guildID != "" && m.GuildID != "" && m.GuildID != c.guildID) {
		return
	}
	name := ""
	if m.GuildID != "" {
		name = c.channelName(m.ChannelID)
	}
	c.emit(messageEvent(m.Message, name))
}

func (c *Client) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == c.botID() || (c.guildID != "" && r.GuildID != "" && r.GuildID != c.guildID) {
		return
	}
	c.emit(reactionEvent(r.MessageReaction))
}

func (c *Client) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot || (c.guildID != "" && m.GuildID != c.guildID) {
		return
	}
	c.emit(joinEvent(m.Member))
}
