package chat

import (
	"context"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

const commandPrefix = "!"

type (
	CommandsConfig struct {
		// AdjustmentCap bounds the absolute value of an operator adjustment.
		AdjustmentCap decimal.Decimal
		GiftDailyCap  int
	}

	// Commands routes "!" prefixed messages.
	Commands struct {
		*base.BaseHandler
		market  Market
		points  Points
		quota   GiftQuota
		trusted Privilege
		cfg     CommandsConfig
	}

	command struct {
		msg  *platform.Message
		name string
		args string
	}
)

func NewCommands(b *base.BaseHandler, m Market, points Points, quota GiftQuota, trusted Privilege, cfg CommandsConfig) *Commands {
	return &Commands{
		BaseHandler: b,
		market:      m,
		points:      points,
		quota:       quota,
		trusted:     trusted,
		cfg:         cfg,
	}
}

// nextToken splits the first whitespace separated token off s.
func nextToken(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func parseCommand(msg *platform.Message) (command, bool) {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, commandPrefix) {
		return command{}, false
	}
	name, args := nextToken(strings.TrimPrefix(content, commandPrefix))
	if name == "" {
		return command{}, false
	}
	return command{msg: msg, name: strings.ToLower(name), args: args}, true
}

func (c *Commands) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	if ev.Message == nil || ev.Message.IsDirect {
		return true, nil
	}
	cmd, ok := parseCommand(ev.Message)
	if !ok {
		return true, nil
	}

	var err error
	switch cmd.name {
	case "beli":
		err = c.buy(ctx, cmd)
	case "ambil":
		err = c.take(ctx, cmd)
	case "saldo":
		err = c.balance(ctx, cmd)
	case "givepoint":
		err = c.givePoint(ctx, cmd)
	case "addpoint":
		err = c.addPoint(ctx, cmd)
	default:
		return true, nil
	}
	return false, err
}

// reply flashes text in the command's channel.
func (c *Commands) reply(ctx context.Context, cmd command, key string, data map[string]any) {
	c.Flash(ctx, cmd.msg.Ref.ChannelID, c.T(key, data))
}
