package chat

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/db/sqlite"
	"github.com/iamwavecut/pasarbot/internal/eligibility"
	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/market"
	"github.com/iamwavecut/pasarbot/internal/platform"
	"github.com/iamwavecut/pasarbot/internal/platform/platformtest"
	"github.com/iamwavecut/pasarbot/internal/policy/permissions"
	"github.com/iamwavecut/pasarbot/internal/tiers"
	"github.com/iamwavecut/pasarbot/internal/verification"
)

type notes struct {
	mu      sync.Mutex
	channel map[string][]string
	direct  map[string][]string
}

func (n *notes) Channel(channelID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channel[channelID] = append(n.channel[channelID], text)
}

func (n *notes) Direct(memberID, text, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct[memberID] = append(n.direct[memberID], text)
}

func (n *notes) Delete(db.MessageRef) {}

func (n *notes) to(memberID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.direct[memberID]...)
}

func (n *notes) in(channelID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.channel[channelID]...)
}

const (
	marketID     = "c_market"
	transcriptID = "c_transcript"
	generalID    = "c_general"
)

var channels = base.Channels{Market: "jual-beli", Transcript: "bukti-transaksi", General: "general", TranscriptID: transcriptID}

type fixture struct {
	store     *sqlite.Client
	fake      *platformtest.Fake
	notes     *notes
	ledger    *ledger.Ledger
	scheduler *verification.Scheduler
	market    *market.Service
	commands  *Commands
	reactions *Reactions
	rewards   *Rewards
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "chat.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:  store,
		fake:   platformtest.New(),
		notes:  &notes{channel: map[string][]string{}, direct: map[string][]string{}},
		ledger: ledger.New(store),
	}
	f.fake.Roles["🛡️ Peacekeeper"] = "role_keeper"
	f.fake.Members["mod"] = []string{"role_keeper"}

	f.scheduler = verification.NewScheduler(f.ledger, store, f.fake, f.notes, verification.Config{
		Timeout:             time.Hour,
		TranscriptChannelID: transcriptID,
		Language:            "en",
	})
	f.market = market.NewService(f.ledger, store, f.fake, f.scheduler, f.notes, market.Config{Language: "en"})
	f.scheduler.SetRefresher(f.market)
	require.NoError(t, f.scheduler.Start(ctx))
	t.Cleanup(func() { _ = f.scheduler.Stop(context.Background()) })

	b := base.NewBaseHandler(f.fake, f.notes, channels, "en", "chat")
	b.SetAfter(func(time.Duration, func()) {})
	f.commands = NewCommands(b, f.market, f.ledger,
		eligibility.NewGiftLimiter(3, nil),
		permissions.NewGate(f.fake, tiers.NewRoleResolver(f.fake), "🛡️ Peacekeeper"),
		CommandsConfig{AdjustmentCap: decimal.NewFromInt(20), GiftDailyCap: 3},
	)
	f.reactions = NewReactions(b, f.market, f.scheduler)
	f.rewards = NewRewards(b, f.ledger, eligibility.NewDailyReward(d("5"), nil), RewardsConfig{
		WelcomeBonus: d("10"),
		DailyReward:  d("2"),
		DailyBelow:   d("5"),
	})
	return f
}

var seq atomic.Int64

func say(channel, author, content string) *platform.Event {
	ids := map[string]string{"jual-beli": marketID, "bukti-transaksi": transcriptID, "general": generalID}
	return &platform.Event{At: time.Now(), Message: &platform.Message{
		Ref:         db.MessageRef{ChannelID: ids[channel], MessageID: "in" + strconv.FormatInt(seq.Add(1), 10)},
		AuthorID:    author,
		ChannelName: channel,
		Content:     content,
	}}
}

func (f *fixture) run(t *testing.T, ev *platform.Event) {
	t.Helper()
	_, err := f.commands.Handle(context.Background(), ev)
	require.NoError(t, err)
}

func (f *fixture) seed(t *testing.T, points db.Points, follows db.FollowGraph) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, db.DocPoints, points))
	require.NoError(t, f.store.Write(ctx, db.DocFollows, follows))
}

func (f *fixture) balance(t *testing.T, member string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), member)
	require.NoError(t, err)
	return b
}

func (f *fixture) onlyRequest(t *testing.T) *db.Request {
	t.Helper()
	requests, err := f.market.Requests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	for _, req := range requests {
		return req
	}
	return nil
}

func flashed(f *fixture, channelID, needle string) bool {
	for _, msg := range f.fake.InChannel(channelID) {
		if strings.Contains(msg.Text, needle) {
			return true
		}
	}
	return false
}

func TestBuyAndTakeThroughCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"r": d("10")}, db.FollowGraph{db.FollowKey("s", "r"): true})

	buy := say("jual-beli", "r", "!beli 3 https://x.com/p/1\nnice\ncool")
	f.run(t, buy)
	req := f.onlyRequest(t)
	assert.Len(t, req.Tasks, 2)
	assert.True(t, d("8").Equal(f.balance(t, "r")))
	assert.Contains(t, f.fake.Deleted, buy.Message.Ref)

	take := say("jual-beli", "s", "!ambil 1")
	take.Message.ReplyTo = &req.Display
	f.run(t, take)
	assert.Equal(t, db.TaskClaimed, f.onlyRequest(t).Tasks[0].Status)
	require.Len(t, f.fake.DirectTo("r"), 1)
	assert.Contains(t, f.fake.DirectTo("r")[0], "nice")
}

func TestBuyRejectsBadInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"r": d("1")}, db.FollowGraph{})

	f.run(t, say("jual-beli", "r", "!beli 3 https://example.com/p\nnice"))
	assert.True(t, flashed(f, marketID, "X (Twitter)"))

	f.run(t, say("jual-beli", "r", "!beli 9 https://x.com/p\nnice"))
	assert.True(t, flashed(f, marketID, "1–7 days"))

	f.run(t, say("jual-beli", "r", "!beli 2 https://x.com/p\nnice\ncool"))
	assert.True(t, flashed(f, marketID, "You need **2 points**. Balance: **1**"))

	f.run(t, say("general", "r", "!beli 2 https://x.com/p\nnice"))
	assert.True(t, flashed(f, generalID, "#jual-beli"))

	requests, err := f.market.Requests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestTakeRequiresReplyAndFollow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"r": d("10")}, db.FollowGraph{})
	f.run(t, say("jual-beli", "r", "!beli 1 https://x.com/p/2\nhello"))
	req := f.onlyRequest(t)

	f.run(t, say("jual-beli", "s", "!ambil 1"))
	assert.True(t, flashed(f, marketID, "reply to the request embed"))

	take := say("jual-beli", "s", "!ambil 1")
	take.Message.ReplyTo = &req.Display
	f.run(t, take)
	assert.True(t, flashed(f, marketID, "follow <@r>"))
	assert.Equal(t, db.TaskOpen, f.onlyRequest(t).Tasks[0].Status)
}

func TestReactionsClaimAndResolve(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, db.Points{"r": d("10")}, db.FollowGraph{db.FollowKey("s", "r"): true})
	f.run(t, say("jual-beli", "r", "!beli 1 https://x.com/p/3\nhello"))
	req := f.onlyRequest(t)

	proceed, err := f.reactions.Handle(ctx, &platform.Event{Reaction: &platform.Reaction{
		Ref: req.Display, MemberID: "s", Emoji: platform.EmblemRetweet,
	}})
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.Equal(t, []string{"s"}, f.onlyRequest(t).RetweetedBy)

	pending, err := f.scheduler.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	var ref db.MessageRef
	for _, pv := range pending {
		ref = pv.Notification
	}

	_, err = f.reactions.Handle(ctx, &platform.Event{Reaction: &platform.Reaction{
		Ref: ref, MemberID: "s", Emoji: platform.EmblemApprove, IsDirect: true,
	}})
	require.NoError(t, err)
	pending, err = f.scheduler.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "only the requester may resolve")

	_, err = f.reactions.Handle(ctx, &platform.Event{Reaction: &platform.Reaction{
		Ref: ref, MemberID: "r", Emoji: platform.EmblemApprove, IsDirect: true,
	}})
	require.NoError(t, err)
	pending, err = f.scheduler.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.True(t, d("1.5").Equal(f.balance(t, "s")))
	assert.True(t, d("7.5").Equal(f.balance(t, "r")))
}

func TestReactionsRevertDeniedAndForeignEmblems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, db.Points{"r": d("10")}, db.FollowGraph{})
	f.run(t, say("jual-beli", "r", "!beli 1 https://x.com/p/4\nhello"))
	req := f.onlyRequest(t)

	for _, r := range []*platform.Reaction{
		{Ref: req.Display, MemberID: "s", Emoji: platform.EmblemLike},
		{Ref: req.Display, MemberID: "s", Emoji: "😂"},
		{Ref: req.Display, MemberID: "r", Emoji: platform.EmblemLike},
	} {
		_, err := f.reactions.Handle(ctx, &platform.Event{Reaction: r})
		require.NoError(t, err)
	}
	assert.Len(t, f.fake.Removed, 3)
	assert.Len(t, f.notes.to("s"), 2)
	assert.Contains(t, f.notes.to("s")[0], "follow <@r>")
	assert.Contains(t, f.notes.to("r")[0], "your own post")
	assert.Empty(t, f.onlyRequest(t).LikedBy)

	proceed, err := f.reactions.Handle(ctx, &platform.Event{Reaction: &platform.Reaction{
		Ref: db.MessageRef{ChannelID: generalID, MessageID: "unrelated"}, MemberID: "s", Emoji: "😂",
	}})
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.Len(t, f.fake.Removed, 3)
}

func TestGivePoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"g": d("20")}, db.FollowGraph{})

	f.run(t, say("bukti-transaksi", "g", "!givepoint <@123> 2"))
	assert.True(t, d("17").Equal(f.balance(t, "g")))
	assert.True(t, d("2").Equal(f.balance(t, "123")))
	require.Len(t, f.notes.in(transcriptID), 1)
	assert.Contains(t, f.notes.in(transcriptID)[0], "(Tax: 1 points)")

	f.run(t, say("bukti-transaksi", "g", "!givepoint <@!123>"))
	f.run(t, say("bukti-transaksi", "g", "!givepoint <@123>"))
	assert.True(t, d("13").Equal(f.balance(t, "g")))
	f.run(t, say("bukti-transaksi", "g", "!givepoint <@123>"))
	assert.True(t, flashed(f, transcriptID, "At most 3 gifts per day"))
	assert.True(t, d("13").Equal(f.balance(t, "g")))

	f.run(t, say("jual-beli", "g", "!givepoint <@123>"))
	assert.True(t, flashed(f, marketID, "#bukti-transaksi"))

	var gifts db.GiverCounts
	require.NoError(t, f.store.Read(context.Background(), db.DocGiverCount, &gifts))
	assert.Equal(t, int64(3), gifts.Count("g"))
}

func TestGivePointOverdraftRefundsQuota(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"g": d("2")}, db.FollowGraph{})

	for i := 0; i < 4; i++ {
		f.run(t, say("bukti-transaksi", "g", "!givepoint <@123> 2"))
	}
	assert.True(t, flashed(f, transcriptID, "You need **3 points** (including 1 points tax)"))
	assert.False(t, flashed(f, transcriptID, "At most 3 gifts"))
	assert.True(t, d("2").Equal(f.balance(t, "g")))
}

func TestAddPoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"m": d("3")}, db.FollowGraph{})

	f.run(t, say("general", "user", "!addpoint <@42> 5"))
	assert.True(t, flashed(f, generalID, "Only 🛡️ Peacekeeper"))
	assert.True(t, f.balance(t, "42").IsZero())

	f.run(t, say("general", "mod", "!addpoint <@42> 5"))
	assert.True(t, d("5").Equal(f.balance(t, "42")))

	f.run(t, say("general", "mod", "!addpoint <@42> 21"))
	assert.True(t, flashed(f, generalID, "between -20 and 20"))

	f.run(t, say("general", "mod", "!addpoint <@42> -6"))
	assert.True(t, flashed(f, generalID, "below zero"))
	assert.True(t, d("5").Equal(f.balance(t, "42")))

	f.run(t, say("general", "mod", "!addpoint <@42> -1.5"))
	assert.True(t, d("3.5").Equal(f.balance(t, "42")))
}

func TestBalanceCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, db.Points{"m": d("4.5")}, db.FollowGraph{})

	f.run(t, say("bukti-transaksi", "m", "!saldo"))
	require.Len(t, f.notes.in(transcriptID), 1)
	assert.Contains(t, f.notes.in(transcriptID)[0], "**4.5 points**")
}

func TestRewards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	proceed, err := f.rewards.Handle(ctx, &platform.Event{Join: &platform.MemberJoin{MemberID: "new"}})
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.True(t, d("10").Equal(f.balance(t, "new")))
	assert.Len(t, f.notes.in(transcriptID), 1)

	for i := 0; i < 2; i++ {
		proceed, err = f.rewards.Handle(ctx, say("general", "poor", "hello"))
		require.NoError(t, err)
		assert.True(t, proceed)
	}
	assert.True(t, d("2").Equal(f.balance(t, "poor")))
	assert.Len(t, f.notes.to("poor"), 1)

	_, err = f.rewards.Handle(ctx, say("general", "new", "hello"))
	require.NoError(t, err)
	assert.True(t, d("10").Equal(f.balance(t, "new")), "reward only applies below the threshold")
}
