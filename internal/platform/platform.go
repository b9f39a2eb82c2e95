// Package platform is the chat-platform boundary consumed by the marketplace core.
package platform

import (
	"context"
	"strings"
	"time"

	"github.com/iamwavecut/pasarbot/internal/db"
)

type (
	Message struct {
		Ref         db.MessageRef
		AuthorID    string
		AuthorIsBot bool
		ChannelName string
		Content     string
		ReplyTo     *db.MessageRef
		IsDirect    bool
	}

	Reaction struct {
		Ref      db.MessageRef
		MemberID string
		Emoji    string
		IsDirect bool
	}

	MemberJoin struct {
		MemberID string
	}

	// Event is one inbound platform signal; exactly one payload is set.
	Event struct {
		Message  *Message
		Reaction *Reaction
		Join     *MemberJoin
		At       time.Time
	}

	// Sink consumes inbound events.
	Sink func(ctx context.Context, ev *Event)

	Embed struct {
		Title       string
		Description string
		Footer      string
		Color       int
	}

	Messenger interface {
		Send(ctx context.Context, channelID, text string) (db.MessageRef, error)
		SendEmbed(ctx context.Context, channelID string, embed Embed) (db.MessageRef, error)
		EditEmbed(ctx context.Context, ref db.MessageRef, embed Embed) error
		// SendDirect fails with errors.ErrDeliveryFailure when the member is unreachable.
		SendDirect(ctx context.Context, memberID, text string) (db.MessageRef, error)
		Delete(ctx context.Context, ref db.MessageRef) error
		React(ctx context.Context, ref db.MessageRef, emoji string) error
		RemoveReaction(ctx context.Context, ref db.MessageRef, emoji, memberID string) error
		ChannelByName(ctx context.Context, name string) (string, error)
	}

	Roles interface {
		// RoleIDs maps role names to ids.
		RoleIDs(ctx context.Context) (map[string]string, error)
		CreateRole(ctx context.Context, name string) (string, error)
		// Silence denies sending and reacting to roleID in every channel.
		Silence(ctx context.Context, roleID string) error
		MemberRoles(ctx context.Context, memberID string) ([]string, error)
		AddRole(ctx context.Context, memberID, roleID string) error
		RemoveRole(ctx context.Context, memberID, roleID string) error
	}

	Platform interface {
		Messenger
		Roles
	}
)

// Engagement and verification emblems.
const (
	EmblemLike    = "❤️"
	EmblemRetweet = "🔁"
	EmblemFollow  = "👥"
	EmblemApprove = "✅"
	EmblemReject  = "❌"
)

var EngagementEmblems = []string{EmblemLike, EmblemRetweet, EmblemFollow}

// TaskForEmblem maps a display reaction to the engagement it claims.
func TaskForEmblem(emoji string) (db.TaskType, bool) {
	switch emoji {
	case EmblemLike:
		return db.TaskLike, true
	case EmblemRetweet:
		return db.TaskRetweet, true
	case EmblemFollow:
		return db.TaskFollow, true
	}
	return "", false
}

// Mention renders a member reference inside message text.
func Mention(memberID string) string {
	return "<@" + memberID + ">"
}

func HasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// ParseMention extracts the member id from "<@id>" or "<@!id>".
func ParseMention(s string) (string, bool) {
	if !strings.HasPrefix(s, "<@") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	id := strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
