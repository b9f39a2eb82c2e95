// Package lifecycle starts components in order and stops them in reverse.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Hooks adapts plain functions to a Component; either may be nil.
type Hooks struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

type named struct {
	name      string
	component Component
}

type Runtime struct {
	components []named
	started    []named
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func getLogEntry() *log.Entry {
	return log.WithField("component", "lifecycle")
}

// Register appends component under name; nil components are skipped.
func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, named{name: name, component: component})
}

// Start starts every registered component; on failure the ones already
// running are stopped before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.started = make([]named, 0, len(r.components))
	for _, c := range r.components {
		began := time.Now()
		if err := c.component.Start(ctx); err != nil {
			_ = stopComponents(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start %s: %w", c.name, err)
		}
		getLogEntry().WithField("name", c.name).WithField("took", time.Since(began).String()).Debug("started")
		r.started = append(r.started, c)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	err := stopComponents(ctx, r.started)
	r.started = nil
	return err
}

func stopComponents(ctx context.Context, components []named) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.component.Stop(ctx); err != nil {
			getLogEntry().WithField("name", c.name).WithField("error", err.Error()).Warn("cant stop")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", c.name, err))
			continue
		}
		getLogEntry().WithField("name", c.name).Debug("stopped")
	}
	return stopErr
}
