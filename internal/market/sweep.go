package market

import (
	"context"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/ledger"
)

const defaultSweepInterval = time.Hour

type refund struct {
	requester string
	amount    decimal.Decimal
}

// Sweep removes requests expired at now and refunds their residual escrow.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	var refunds []refund
	removed := 0
	err := s.ledger.Do(ctx, func(tx db.Tx, book *ledger.Book) error {
		refunds, removed = nil, 0
		var requests db.Requests
		if err := tx.Load(db.DocRequests, &requests); err != nil {
			return err
		}
		for id, req := range requests {
			if !now.After(req.ExpiresAt) {
				continue
			}
			residual := book.ReleaseEscrow(id, req.RequesterID)
			if residual.IsPositive() {
				refunds = append(refunds, refund{requester: req.RequesterID, amount: residual})
			}
			delete(requests, id)
			removed++
		}
		if removed == 0 {
			return nil
		}
		return tx.Save(db.DocRequests, requests)
	})
	if err != nil {
		return 0, err
	}

	for _, r := range refunds {
		s.notifier.Direct(r.requester, tool.ExecTemplate(
			i18n.Get("⏰ Your engagement request has expired. **{{ .amount }} points** were returned.", s.cfg.Language),
			map[string]any{"amount": r.amount.String()},
		), "")
	}
	if removed > 0 {
		s.getLogEntry().WithField("removed", removed).WithField("refunds", len(refunds)).Info("expired requests swept")
	}
	return removed, nil
}

// RunSweeper sweeps right away and then every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx, s.clock()); err != nil && ctx.Err() == nil {
			s.getLogEntry().WithField("error", err.Error()).Error("sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunSweeper(runCtx, s.cfg.SweepInterval)
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
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
