package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/infra"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type UpdateProcessor struct {
	updateHandlers []Handler
	now            func() time.Time
}

func NewUpdateProcessor(handlers ...Handler) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			enabledHandlers = append(enabledHandlers, h)
		}
	}
	return &UpdateProcessor{
		updateHandlers: enabledHandlers,
		now:            time.Now,
	}
}

func (up *UpdateProcessor) getLogEntry() *log.Entry {
	return log.WithField("component", "update_processor")
}

// Process runs ev through the handler chain until one declines to proceed.
func (up *UpdateProcessor) Process(ctx context.Context, ev *platform.Event) error {
	if ev == nil {
		return errors.New("event is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !ev.At.IsZero() && up.now().Sub(ev.At) > UpdateTimeout {
		up.getLogEntry().WithFields(log.Fields{
			"event_time": ev.At,
			"age":        up.now().Sub(ev.At),
		}).Debug("Skipping outdated event")
		return nil
	}
	if ev.Message != nil && ev.Message.AuthorIsBot {
		return nil
	}

	for _, handler := range up.updateHandlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, ev)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

// Consume is a platform.Sink that logs processing failures.
func (up *UpdateProcessor) Consume(ctx context.Context, ev *platform.Event) {
	defer infra.Recover("process_event")
	if err := up.Process(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		up.getLogEntry().WithField("error", err.Error()).Error("cant process event")
	}
}
