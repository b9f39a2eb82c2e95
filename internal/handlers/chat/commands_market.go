package chat

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	perrors "github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/market"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

func (c *Commands) requireChannel(ctx context.Context, cmd command, channel string) bool {
	if cmd.msg.ChannelName == channel {
		return true
	}
	c.reply(ctx, cmd, "❌ Use this command only in #{{ .channel }}.", map[string]any{"channel": channel})
	c.Discard(ctx, cmd.msg.Ref)
	return false
}

func (c *Commands) failed(ctx context.Context, cmd command, err error, what string) error {
	c.reply(ctx, cmd, "❌ Something went wrong, please try again later.", nil)
	return errors.WithMessage(err, what)
}

func (c *Commands) buy(ctx context.Context, cmd command) error {
	if !c.requireChannel(ctx, cmd, c.Channels().Market) {
		return nil
	}
	defer c.Discard(ctx, cmd.msg.Ref)

	daysArg, rest := nextToken(cmd.args)
	link, comments := nextToken(rest)
	days, convErr := strconv.Atoi(daysArg)
	if convErr != nil || link == "" {
		c.reply(ctx, cmd, "❌ Usage: `!beli <days 1-7> <link>` followed by one comment per line.", nil)
		return nil
	}

	_, err := c.market.Buy(ctx, market.BuyInput{
		RequesterID: cmd.msg.AuthorID,
		ChannelID:   cmd.msg.Ref.ChannelID,
		Days:        days,
		Link:        link,
		CommentsRaw: comments,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, market.ErrInvalidLink):
		c.reply(ctx, cmd, "❌ The link must be from X (Twitter).", nil)
	case errors.Is(err, market.ErrInvalidDays):
		c.reply(ctx, cmd, "❌ Duration must be between **1–7 days**.", nil)
	case errors.Is(err, market.ErrNoComments):
		c.reply(ctx, cmd, "❌ At least 1 comment is required.", nil)
	case errors.Is(err, perrors.ErrInsufficientFunds):
		balance, _ := c.points.Balance(ctx, cmd.msg.AuthorID)
		c.reply(ctx, cmd, "❌ You need **{{ .total }} points**. Balance: **{{ .balance }}**.", map[string]any{
			"total":   market.Quote(comments).String(),
			"balance": balance.String(),
		})
	default:
		return c.failed(ctx, cmd, err, "cant open request")
	}
	return nil
}

func (c *Commands) take(ctx context.Context, cmd command) error {
	if !c.requireChannel(ctx, cmd, c.Channels().Market) {
		return nil
	}
	defer c.Discard(ctx, cmd.msg.Ref)

	if cmd.msg.ReplyTo == nil {
		c.reply(ctx, cmd, "❌ You must reply to the request embed!", nil)
		return nil
	}
	numberArg, _ := nextToken(cmd.args)
	number, convErr := strconv.Atoi(numberArg)
	if convErr != nil {
		c.reply(ctx, cmd, "❌ Usage: reply to a request embed with `!ambil <number>`.", nil)
		return nil
	}

	err := c.market.ClaimComment(ctx, cmd.msg.AuthorID, *cmd.msg.ReplyTo, number)
	var numErr *market.TaskNumberError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, market.ErrRequestNotFound):
		c.reply(ctx, cmd, "❌ Request not found or already expired.", nil)
	case errors.Is(err, market.ErrNoOpenComments):
		c.reply(ctx, cmd, "❌ No comments available.", nil)
	case errors.As(err, &numErr):
		c.reply(ctx, cmd, "❌ Task number must be 1–{{ .open }}.", map[string]any{"open": numErr.Open})
	case errors.Is(err, perrors.ErrSelfDealing):
		c.reply(ctx, cmd, "❌ You can't take your own request.", nil)
	case errors.Is(err, perrors.ErrFollowRequired):
		c.reply(ctx, cmd, "🔒 You must follow {{ .requester }} and complete verification before taking comments.", map[string]any{
			"requester": c.requesterMention(ctx, *cmd.msg.ReplyTo),
		})
	case errors.Is(err, perrors.ErrAlreadyEngaged):
		c.reply(ctx, cmd, "❌ You have already taken a comment for this post.", nil)
	default:
		return c.failed(ctx, cmd, err, "cant claim comment")
	}
	return nil
}

func (c *Commands) requesterMention(ctx context.Context, display db.MessageRef) string {
	req, err := c.market.RequestByDisplay(ctx, display)
	if err != nil {
		return c.T("the requester", nil)
	}
	return platform.Mention(req.RequesterID)
}

// parseAmount reads an optional decimal argument, def when absent.
func parseAmount(arg string, def decimal.Decimal) (decimal.Decimal, error) {
	if arg == "" {
		return def, nil
	}
	return decimal.NewFromString(arg)
}
