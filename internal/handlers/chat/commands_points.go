package chat

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	perrors "github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

func (c *Commands) balance(ctx context.Context, cmd command) error {
	defer c.Discard(ctx, cmd.msg.Ref)
	points, err := c.points.Balance(ctx, cmd.msg.AuthorID)
	if err != nil {
		return c.failed(ctx, cmd, err, "cant read balance")
	}
	c.Say(cmd.msg.Ref.ChannelID, c.T("💰 {{ .member }} has **{{ .points }} points**.", map[string]any{
		"member": platform.Mention(cmd.msg.AuthorID),
		"points": points.String(),
	}))
	return nil
}

func (c *Commands) givePoint(ctx context.Context, cmd command) error {
	if !c.requireChannel(ctx, cmd, c.Channels().Transcript) {
		return nil
	}
	defer c.Discard(ctx, cmd.msg.Ref)

	targetArg, rest := nextToken(cmd.args)
	amountArg, _ := nextToken(rest)
	receiver, ok := platform.ParseMention(targetArg)
	if !ok {
		c.reply(ctx, cmd, "❌ Usage: `!givepoint @user [amount]`.", nil)
		return nil
	}
	if receiver == cmd.msg.AuthorID {
		c.reply(ctx, cmd, "❌ You can't transfer to yourself.", nil)
		return nil
	}
	amount := 1
	if amountArg != "" {
		var err error
		if amount, err = strconv.Atoi(amountArg); err != nil {
			c.reply(ctx, cmd, "❌ Usage: `!givepoint @user [amount]`.", nil)
			return nil
		}
	}
	if amount < 1 {
		c.reply(ctx, cmd, "❌ The minimum amount is 1 point.", nil)
		return nil
	}

	giver := cmd.msg.AuthorID
	if err := c.quota.Take(giver); err != nil {
		c.reply(ctx, cmd, "❌ At most {{ .cap }} gifts per day.", map[string]any{"cap": c.cfg.GiftDailyCap})
		return nil
	}
	gift := decimal.NewFromInt(int64(amount))
	receipt, err := c.points.Gift(ctx, giver, receiver, gift)
	if err != nil {
		c.quota.Refund(giver)
		if errors.Is(err, perrors.ErrInsufficientFunds) {
			c.reply(ctx, cmd, "❌ Not enough balance. You need **{{ .cost }} points** (including {{ .tax }} points tax).", map[string]any{
				"cost": gift.Add(ledger.GiftTax(gift)).String(),
				"tax":  ledger.GiftTax(gift).String(),
			})
			return nil
		}
		return c.failed(ctx, cmd, err, "cant transfer gift")
	}
	c.Say(cmd.msg.Ref.ChannelID, c.T("✨ {{ .giver }} gave **{{ .amount }} points** to {{ .receiver }}! (Tax: {{ .tax }} points)", map[string]any{
		"giver":    platform.Mention(giver),
		"receiver": platform.Mention(receiver),
		"amount":   receipt.Amount.String(),
		"tax":      receipt.Tax.String(),
	}))
	return nil
}

func (c *Commands) addPoint(ctx context.Context, cmd command) error {
	if err := c.trusted.Require(ctx, cmd.msg.AuthorID); err != nil {
		if errors.Is(err, perrors.ErrUnauthorized) {
			c.reply(ctx, cmd, "❌ Only {{ .role }} may adjust points.", map[string]any{"role": c.trusted.RoleName()})
			return nil
		}
		return c.failed(ctx, cmd, err, "cant check privilege")
	}

	targetArg, rest := nextToken(cmd.args)
	amountArg, _ := nextToken(rest)
	member, ok := platform.ParseMention(targetArg)
	delta, convErr := parseAmount(amountArg, decimal.Zero)
	if !ok || amountArg == "" || convErr != nil {
		c.reply(ctx, cmd, "❌ Usage: `!addpoint @user <amount>`.", nil)
		return nil
	}
	if delta.Abs().GreaterThan(c.cfg.AdjustmentCap) {
		c.reply(ctx, cmd, "❌ The amount must be between -{{ .cap }} and {{ .cap }}.", map[string]any{"cap": c.cfg.AdjustmentCap.String()})
		return nil
	}

	balance, err := c.points.Adjust(ctx, member, delta)
	switch {
	case errors.Is(err, perrors.ErrInsufficientFunds):
		c.reply(ctx, cmd, "❌ The balance can't go below zero.", nil)
		return nil
	case err != nil:
		return c.failed(ctx, cmd, err, "cant adjust balance")
	}
	c.Say(cmd.msg.Ref.ChannelID, c.T(
		"✅ Points of {{ .member }} {{ if .added }}increased{{ else }}decreased{{ end }} by {{ .amount }}. New balance: **{{ .balance }}**",
		map[string]any{
			"member":  platform.Mention(member),
			"added":   delta.IsPositive(),
			"amount":  delta.Abs().String(),
			"balance": balance.String(),
		},
	))
	return nil
}
