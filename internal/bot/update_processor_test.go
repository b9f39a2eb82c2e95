package bot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamwavecut/pasarbot/internal/bot"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

func recordTo(calls *[]string, name string, proceed bool, err error) bot.Handler {
	return bot.HandlerFunc(func(context.Context, *platform.Event) (bool, error) {
		*calls = append(*calls, name)
		return proceed, err
	})
}

func TestProcessStopsWhenHandlerDeclines(t *testing.T) {
	t.Parallel()

	var calls []string
	up := bot.NewUpdateProcessor(
		recordTo(&calls, "policy", true, nil),
		nil,
		recordTo(&calls, "flood", false, nil),
		recordTo(&calls, "commands", true, nil),
	)
	ev := &platform.Event{Message: &platform.Message{Content: "hi"}, At: time.Now()}
	if err := up.Process(context.Background(), ev); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(calls) != 2 || calls[0] != "policy" || calls[1] != "flood" {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestProcessWrapsHandlerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls []string
	up := bot.NewUpdateProcessor(recordTo(&calls, "one", true, boom), recordTo(&calls, "two", true, nil))
	err := up.Process(context.Background(), &platform.Event{Join: &platform.MemberJoin{MemberID: "1"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("chain must stop on error: %v", calls)
	}
}

func TestProcessSkipsOutdatedAndBotEvents(t *testing.T) {
	t.Parallel()

	var calls []string
	up := bot.NewUpdateProcessor(recordTo(&calls, "any", true, nil))
	ctx := context.Background()

	old := &platform.Event{Message: &platform.Message{Content: "late"}, At: time.Now().Add(-2 * bot.UpdateTimeout)}
	if err := up.Process(ctx, old); err != nil {
		t.Fatalf("process old: %v", err)
	}
	own := &platform.Event{Message: &platform.Message{AuthorIsBot: true}, At: time.Now()}
	if err := up.Process(ctx, own); err != nil {
		t.Fatalf("process bot: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no handler calls, got %v", calls)
	}
	if err := up.Process(ctx, nil); err == nil {
		t.Fatalf("expected nil event error")
	}
}

func TestProcessHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	var calls []string
	up := bot.NewUpdateProcessor(recordTo(&calls, "any", true, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := up.Process(ctx, &platform.Event{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
