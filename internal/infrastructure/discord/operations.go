package discord

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

const silencedPermissions = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions

// classify maps REST failures onto the platform error kinds.
func classify(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %w", errors.ErrDeliveryFailure, err)
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole:
			return fmt.Errorf("%w: %w", errors.ErrNotFound, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", errors.ErrDeliveryFailure, err)
	}
	return err
}

func ref(m *discordgo.Message) db.MessageRef {
	return db.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
}

func (c *Client) Send(ctx context.Context, channelID, text string) (db.MessageRef, error) {
	m, err := c.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return db.MessageRef{}, fmt.Errorf("send message: %w", classify(err))
	}
	return ref(m), nil
}

func (c *Client) SendEmbed(ctx context.Context, channelID string, embed platform.Embed) (db.MessageRef, error) {
	m, err := c.session.ChannelMessageSendEmbed(channelID, toEmbed(embed), discordgo.WithContext(ctx))
	if err != nil {
		return db.MessageRef{}, fmt.Errorf("send embed: %w", classify(err))
	}
	return ref(m), nil
}

func (c *Client) EditEmbed(ctx context.Context, msg db.MessageRef, embed platform.Embed) error {
	if _, err := c.session.ChannelMessageEditEmbed(msg.ChannelID, msg.MessageID, toEmbed(embed), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit embed: %w", classify(err))
	}
	return nil
}

func (c *Client) SendDirect(ctx context.Context, memberID, text string) (db.MessageRef, error) {
	ch, err := c.session.UserChannelCreate(memberID, discordgo.WithContext(ctx))
	if err != nil {
		return db.MessageRef{}, fmt.Errorf("open dm channel: %w", classify(err))
	}
	m, err := c.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	if err != nil {
		return db.MessageRef{}, fmt.Errorf("send dm: %w", classify(err))
	}
	return ref(m), nil
}

func (c *Client) Delete(ctx context.Context, msg db.MessageRef) error {
	if err := c.session.ChannelMessageDelete(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message: %w", classify(err))
	}
	return nil
}

func (c *Client) React(ctx context.Context, msg db.MessageRef, emoji string) error {
	if err := c.session.MessageReactionAdd(msg.ChannelID, msg.MessageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction: %w", classify(err))
	}
	return nil
}

func (c *Client) RemoveReaction(ctx context.Context, msg db.MessageRef, emoji, memberID string) error {
	if err := c.session.MessageReactionRemove(msg.ChannelID, msg.MessageID, emoji, memberID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove reaction: %w", classify(err))
	}
	return nil
}

func (c *Client) ChannelByName(ctx context.Context, name string) (string, error) {
	channels, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list channels: %w", classify(err))
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("channel %s: %w", name, errors.ErrNotFound)
}

func (c *Client) RoleIDs(ctx context.Context) (map[string]string, error) {
	roles, err := c.session.GuildRoles(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", classify(err))
	}
	res := make(map[string]string, len(roles))
	for _, role := range roles {
		res[role.Name] = role.ID
	}
	return res, nil
}

func (c *Client) CreateRole(ctx context.Context, name string) (string, error) {
	role, err := c.session.GuildRoleCreate(c.guildID, &discordgo.RoleParams{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create role %s: %w", name, classify(err))
	}
	return role.ID, nil
}

func (c *Client) Silence(ctx context.Context, roleID string) error {
	channels, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("list channels: %w", classify(err))
	}
	var errs []error
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if err := c.session.ChannelPermissionSet(
			ch.ID, roleID, discordgo.PermissionOverwriteTypeRole, 0, silencedPermissions, discordgo.WithContext(ctx),
		); err != nil {
			errs = append(errs, fmt.Errorf("silence in %s: %w", ch.Name, classify(err)))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) MemberRoles(ctx context.Context, memberID string) ([]string, error) {
	member, err := c.session.GuildMember(c.guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get member: %w", classify(err))
	}
	return member.Roles, nil
}

func (c *Client) AddRole(ctx context.Context, memberID, roleID string) error {
	if err := c.session.GuildMemberRoleAdd(c.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role: %w", classify(err))
	}
	return nil
}

func (c *Client) RemoveRole(ctx context.Context, memberID, roleID string) error {
	if err := c.session.GuildMemberRoleRemove(c.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove role: %w", classify(err))
	}
	return nil
}
