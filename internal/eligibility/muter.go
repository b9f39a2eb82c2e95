package eligibility

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/pasarbot/internal/platform"
)

var ErrAlreadyMuted = errors.New("member already muted")

// Muter applies timed mutes through the muted role and adjusts escalation on wake.
type Muter struct {
	roles    platform.Roles
	flood    *FloodDetector
	roleName string
	after    func(time.Duration) <-chan time.Time

	group  singleflight.Group
	mu     sync.Mutex
	roleID string

	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewMuter(roles platform.Roles, flood *FloodDetector, roleName string) *Muter {
	return &Muter{
		roles:    roles,
		flood:    flood,
		roleName: roleName,
		after:    time.After,
	}
}

func (m *Muter) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	m.runCtx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.started = true
	return nil
}

func (m *Muter) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoleID resolves the muted role, creating it when absent. The role is
// silenced on first resolution; a failed silence is retried on the next call.
func (m *Muter) RoleID(ctx context.Context) (string, error) {
	m.mu.Lock()
	id := m.roleID
	m.mu.Unlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := m.group.Do(m.roleName, func() (any, error) {
		m.mu.Lock()
		cached := m.roleID
		m.mu.Unlock()
		if cached != "" {
			return cached, nil
		}
		ids, err := m.roles.RoleIDs(ctx)
		if err != nil {
			return "", fmt.Errorf("list roles: %w", err)
		}
		id, ok := ids[m.roleName]
		if !ok {
			if id, err = m.roles.CreateRole(ctx, m.roleName); err != nil {
				return "", fmt.Errorf("create muted role: %w", err)
			}
		}
		if err := m.roles.Silence(ctx, id); err != nil {
			log.WithField("component", "muter").
				WithField("role", id).
				WithField("error", err.Error()).
				Warn("cant silence muted role in every channel")
			return id, nil
		}
		m.mu.Lock()
		m.roleID = id
		m.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Mute adds the muted role and schedules its removal after d.
// A member already holding the role fails with ErrAlreadyMuted and keeps the running timer.
func (m *Muter) Mute(ctx context.Context, member string, d time.Duration) error {
	m.mu.Lock()
	runCtx, started := m.runCtx, m.started
	m.mu.Unlock()
	if !started {
		return fmt.Errorf("muter is not started")
	}

	roleID, err := m.RoleID(ctx)
	if err != nil {
		return err
	}
	roles, err := m.roles.MemberRoles(ctx, member)
	if err != nil {
		return fmt.Errorf("read member roles: %w", err)
	}
	if platform.HasRole(roles, roleID) {
		return ErrAlreadyMuted
	}
	if err := m.roles.AddRole(ctx, member, roleID); err != nil {
		return fmt.Errorf("add muted role: %w", err)
	}
	log.WithField("component", "muter").
		WithField("member", member).
		WithField("duration", d.String()).
		Info("member muted")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-runCtx.Done():
			return
		case <-m.after(d):
		}
		m.wake(runCtx, member, roleID)
	}()
	return nil
}

func (m *Muter) wake(ctx context.Context, member, roleID string) {
	entry := log.WithField("component", "muter").WithField("member", member)
	roles, err := m.roles.MemberRoles(ctx, member)
	if err != nil {
		entry.WithError(err).Warn("cant read member roles on unmute")
		return
	}
	if !platform.HasRole(roles, roleID) {
		m.flood.Reset(member)
		entry.Debug("mute lifted early, escalation reset")
		return
	}
	if err := m.roles.RemoveRole(ctx, member, roleID); err != nil {
		entry.WithError(err).Warn("cant remove muted role")
		return
	}
	m.flood.Escalate(member)
	entry.WithField("level", m.flood.Level(member)).Info("member unmuted")
}
