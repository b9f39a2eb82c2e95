package event

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/observability"
)

type Handler func(ctx context.Context, e Queueable)

// Dispatcher delivers queued events to subscribers on one worker goroutine.
// Enqueue never blocks: a full queue drops the event.
type Dispatcher struct {
	q chan Queueable

	mu            sync.RWMutex
	subscriptions map[string][]Handler

	startStopMutex sync.Mutex
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	started        bool
}

func NewDispatcher(size int) *Dispatcher {
	return &Dispatcher{
		q:             make(chan Queueable, size),
		subscriptions: map[string][]Handler{},
	}
}

func (d *Dispatcher) getLogEntry() *log.Entry {
	return log.WithField("component", "event_dispatcher")
}

func (d *Dispatcher) Subscribe(eventType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscriptions[eventType] = append(d.subscriptions[eventType], h)
}

func (d *Dispatcher) Enqueue(e Queueable) bool {
	select {
	case d.q <- e:
		return true
	default:
		observability.RecordDroppedNotification()
		d.getLogEntry().WithField("type", e.Type()).Warn("queue is full, event dropped")
		return false
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.startStopMutex.Lock()
	defer d.startStopMutex.Unlock()
	if d.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.started = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.getLogEntry().Trace("events runner go")
		for {
			select {
			case <-runCtx.Done():
				d.drain(ctx)
				return
			case e := <-d.q:
				d.dispatch(runCtx, e)
			}
		}
	}()
	return nil
}

// drain delivers what is still queued at shutdown.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case e := <-d.q:
			d.dispatch(context.WithoutCancel(ctx), e)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e Queueable) {
	if e.Expired() {
		d.getLogEntry().WithField("type", e.Type()).Debug("skip expired event")
		return
	}
	d.mu.RLock()
	subscribers := d.subscriptions[e.Type()]
	d.mu.RUnlock()
	if len(subscribers) == 0 {
		d.getLogEntry().WithField("type", e.Type()).Debug("no subscribers")
		return
	}
	for _, sub := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.getLogEntry().WithField("type", e.Type()).WithField("panic", r).Error("subscriber panicked")
				}
			}()
			sub(ctx, e)
		}()
	}
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.startStopMutex.Lock()
	if !d.started {
		d.startStopMutex.Unlock()
		return nil
	}
	d.started = false
	cancel := d.cancel
	d.startStopMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
