package verification

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
	"github.com/iamwavecut/pasarbot/internal/tiers"
)

const (
	SourceExplicit = "explicit"
	SourceTimeout  = "timeout"
)

type (
	// Claim is a performed engagement awaiting the requester's verdict.
	Claim struct {
		RequestID   string
		RequesterID string
		SellerID    string
		TaskType    db.TaskType
		TaskIdx     *int
		Price       decimal.Decimal
		Link        string
		CommentText string
	}

	Notifier interface {
		Channel(channelID, text string)
		Direct(memberID, text, fallbackChannelID string)
		Delete(ref db.MessageRef)
	}

	// Refresher re-renders the display of a request.
	Refresher interface {
		Refresh(ctx context.Context, requestID string)
	}

	Config struct {
		Timeout             time.Duration
		TranscriptChannelID string
		Language            string
	}

	Scheduler struct {
		ledger    *ledger.Ledger
		store     db.DocumentStore
		messenger platform.Messenger
		notifier  Notifier
		refresher Refresher
		cfg       Config
		clock     func() time.Time

		mu         sync.Mutex
		runtimeCtx context.Context
		cancel     context.CancelFunc
		wg         sync.WaitGroup
		started    bool
	}
)

func NewScheduler(l *ledger.Ledger, store db.DocumentStore, messenger platform.Messenger, notifier Notifier, cfg Config) *Scheduler {
	return &Scheduler{
		ledger:    l,
		store:     store,
		messenger: messenger,
		notifier:  notifier,
		cfg:       cfg,
		clock:     time.Now,
	}
}

// SetRefresher wires the display projection after construction, the market
// service depends on the scheduler in turn.
func (s *Scheduler) SetRefresher(r Refresher) {
	s.refresher = r
}

func (s *Scheduler) getLogEntry() *log.Entry {
	return log.WithField("component", "verification")
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.runtimeCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.mu.Unlock()

	var pending db.PendingDMs
	if err := s.store.Read(ctx, db.DocPendingDM, &pending); err != nil {
		return fmt.Errorf("read pending verifications: %w", err)
	}
	now := s.clock()
	for id, pv := range pending {
		remaining := pv.CreatedAt.Add(s.cfg.Timeout).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		s.arm(id, remaining)
	}
	if len(pending) > 0 {
		s.getLogEntry().WithField("count", len(pending)).Info("re-armed pending verifications")
	}
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) getRuntimeContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtimeCtx != nil {
		return s.runtimeCtx
	}
	return context.Background()
}

func (s *Scheduler) scheduleAfter(delay time.Duration, task func(ctx context.Context)) {
	runCtx := s.getRuntimeContext()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
			task(runCtx)
		}
	}()
}

func (s *Scheduler) arm(id string, delay time.Duration) {
	s.scheduleAfter(delay, func(ctx context.Context) {
		if err := s.settle(ctx, id, true, SourceTimeout); err != nil && !stderrors.Is(err, context.Canceled) {
			s.getLogEntry().WithField("verification", id).WithField("error", err.Error()).Error("timeout settlement failed")
		}
	})
}

// Open stores the verification, asks the requester and arms the timeout.
// An unreachable requester does not cancel the claim: silence is consent.
func (s *Scheduler) Open(ctx context.Context, claim Claim) error {
	var gifts db.GiverCounts
	if err := s.store.Read(ctx, db.DocGiverCount, &gifts); err != nil {
		return fmt.Errorf("read giver counts: %w", err)
	}
	userPays := ledger.UserPays(claim.Price, tiers.MemberIsBenefactor(gifts, claim.RequesterID))

	pv := &db.PendingVerification{
		ID:          uuid.New(),
		RequestID:   claim.RequestID,
		TaskType:    claim.TaskType,
		TaskIdx:     claim.TaskIdx,
		SellerID:    claim.SellerID,
		RequesterID: claim.RequesterID,
		Price:       claim.Price,
		UserPays:    userPays,
		IsComment:   claim.TaskType == db.TaskComment,
		CreatedAt:   s.clock(),
	}
	if err := s.store.Transact(ctx, func(tx db.Tx) error {
		var pending db.PendingDMs
		if err := tx.Load(db.DocPendingDM, &pending); err != nil {
			return err
		}
		pending[pv.ID] = pv
		return tx.Save(db.DocPendingDM, pending)
	}); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}
	s.arm(pv.ID, s.cfg.Timeout)

	entry := s.getLogEntry().WithField("verification", pv.ID).WithField("request", pv.RequestID)
	ref, err := s.messenger.SendDirect(ctx, claim.RequesterID, s.claimText(claim, userPays))
	if err != nil {
		entry.WithField("error", err.Error()).Info("cant deliver verification dm")
		s.notifier.Channel(s.cfg.TranscriptChannelID, tool.ExecTemplate(
			i18n.Get("⚠️ Failed to send a DM to {{ .requester }}: {{ .task }} confirmation claimed by {{ .seller }}.", s.cfg.Language),
			map[string]any{
				"requester": platform.Mention(claim.RequesterID),
				"seller":    platform.Mention(claim.SellerID),
				"task":      claim.TaskType,
			},
		))
		return nil
	}
	for _, emblem := range []string{platform.EmblemApprove, platform.EmblemReject} {
		if err := s.messenger.React(ctx, ref, emblem); err != nil {
			entry.WithField("error", err.Error()).Warn("cant add verification emblem")
		}
	}

	err = s.store.Transact(ctx, func(tx db.Tx) error {
		var pending db.PendingDMs
		if err := tx.Load(db.DocPendingDM, &pending); err != nil {
			return err
		}
		stored, ok := pending[pv.ID]
		if !ok {
			return errors.ErrNotFound
		}
		stored.Notification = ref
		return tx.Save(db.DocPendingDM, pending)
	})
	if stderrors.Is(err, errors.ErrNotFound) {
		// settled before the ref was stored
		s.notifier.Delete(ref)
		return nil
	}
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant store verification dm ref")
	}
	entry.Debug("verification opened")
	return nil
}

func (s *Scheduler) claimText(claim Claim, userPays decimal.Decimal) string {
	subsidy := ledger.Subsidy(claim.Price, userPays)
	data := map[string]any{
		"seller":  platform.Mention(claim.SellerID),
		"task":    claim.TaskType,
		"link":    claim.Link,
		"price":   claim.Price.String(),
		"minutes": int(s.cfg.Timeout.Minutes()),
		"comment": claim.CommentText,
	}
	if subsidy.IsPositive() {
		data["subsidy"] = subsidy.String()
	}
	return tool.ExecTemplate(i18n.Get(
		"💬 {{ .seller }} claims to have completed: **{{ .task }}**{{ if .comment }} _‘{{ .comment }}’_{{ end }}\n"+
			"Link: {{ .link }}\n"+
			"Price: **{{ .price }} points**{{ if .subsidy }}\n(system subsidy: {{ .subsidy }} points){{ end }}\n\n"+
			"✅ **React if the task is DONE**\n"+
			"❌ **React if the task is WRONG or NOT DONE**\n"+
			"⏳ Without a reaction within **{{ .minutes }} minutes** the transaction is **considered valid**.",
		s.cfg.Language,
	), data)
}

// Resolve settles the verification whose DM is ref with the requester's verdict.
// Reactions from anyone but the requester and unknown refs are ignored.
func (s *Scheduler) Resolve(ctx context.Context, ref db.MessageRef, memberID string, approved bool) (bool, error) {
	var pending db.PendingDMs
	if err := s.store.Read(ctx, db.DocPendingDM, &pending); err != nil {
		return false, fmt.Errorf("read pending verifications: %w", err)
	}
	pv, ok := pending.FindByNotification(ref)
	if !ok || pv.RequesterID != memberID {
		return false, nil
	}
	if err := s.settle(ctx, pv.ID, approved, SourceExplicit); err != nil {
		return false, err
	}
	return true, nil
}

// Pending lists the stored verifications.
func (s *Scheduler) Pending(ctx context.Context) (db.PendingDMs, error) {
	var pending db.PendingDMs
	if err := s.store.Read(ctx, db.DocPendingDM, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}
