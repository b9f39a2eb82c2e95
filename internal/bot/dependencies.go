package bot

import (
	"context"

	"github.com/iamwavecut/pasarbot/internal/platform"
)

// Handler defines the interface for all event handlers in the system
type Handler interface {
	Handle(ctx context.Context, ev *platform.Event) (proceed bool, err error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev *platform.Event) (bool, error)

func (f HandlerFunc) Handle(ctx context.Context, ev *platform.Event) (bool, error) {
	return f(ctx, ev)
}
