package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/pasarbot/internal/db"
)

type posted struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (p *posted) Channel(channelID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lines == nil {
		p.lines = map[string][]string{}
	}
	p.lines[channelID] = append(p.lines[channelID], text)
}

func TestTranscriptAnnouncesCredits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	poster := &posted{}
	l := New(newStore(t))
	l.Subscribe(NewTranscript(poster, l, "audit", "en"))

	require.NoError(t, l.Credit(ctx, "m", decimal.NewFromInt(2), Memo{Reason: ReasonDaily}))
	_, err := l.Adjust(ctx, "m", decimal.NewFromInt(3))
	require.NoError(t, err)
	_, err = l.Adjust(ctx, "m", decimal.NewFromInt(-1))
	require.NoError(t, err)

	require.NoError(t, l.Do(ctx, func(_ db.Tx, book *Book) error {
		if err := book.OpenEscrow("r1", "m", decimal.NewFromInt(2)); err != nil {
			return err
		}
		book.ReleaseEscrow("r1", "m")
		return nil
	}))

	lines := poster.lines["audit"]
	require.Len(t, lines, 3)
	assert.Equal(t, "✨ <@m> received **2 points** for daily activity! Balance: **2**", lines[0])
	assert.Contains(t, lines[1], "a moderator adjustment! Balance: **5**")
	assert.Contains(t, lines[2], "**2 points** for an expired request refund! Balance: **4**")
}

func TestTranscriptSkipsNoticedReasons(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	poster := &posted{}
	l := New(newStore(t))
	l.Subscribe(NewTranscript(poster, l, "audit", "en"))

	require.NoError(t, l.Credit(ctx, "r", decimal.NewFromInt(10), Memo{Reason: ReasonWelcome}))
	require.NoError(t, l.Do(ctx, func(_ db.Tx, book *Book) error {
		return book.Transfer("r", "s", decimal.NewFromInt(1), Memo{Reason: ReasonPayout})
	}))
	_, err := l.Gift(ctx, "r", "s", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.Empty(t, poster.lines["audit"])
}
