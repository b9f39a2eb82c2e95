package verification

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/iamwavecut/tool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/observability"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeRejected
	OutcomeInsufficientFunds
	OutcomeStale
)

// settle removes the verification and moves funds in one transaction.
// A verification that is already gone is a silent no-op. A verification whose
// request was swept is dropped without moving funds.
func (s *Scheduler) settle(ctx context.Context, id string, approved bool, source string) error {
	ctx, span := observability.Tracer().Start(ctx, "verification.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("verification.id", id),
		attribute.String("verification.source", source),
		attribute.Bool("verification.approved", approved),
	)

	var (
		pv      *db.PendingVerification
		outcome Outcome
	)
	err := s.ledger.Do(ctx, func(tx db.Tx, book *ledger.Book) error {
		var pending db.PendingDMs
		if err := tx.Load(db.DocPendingDM, &pending); err != nil {
			return err
		}
		var ok bool
		if pv, ok = pending[id]; !ok {
			return errors.ErrNotFound
		}
		delete(pending, id)
		if err := tx.Save(db.DocPendingDM, pending); err != nil {
			return err
		}

		var requests db.Requests
		if err := tx.Load(db.DocRequests, &requests); err != nil {
			return err
		}
		req, ok := requests[pv.RequestID]
		if !ok {
			outcome = OutcomeStale
			return nil
		}

		if !approved {
			outcome = OutcomeRejected
			if pv.IsComment && revertTask(req, pv) {
				return tx.Save(db.DocRequests, requests)
			}
			return nil
		}

		var err error
		if pv.IsComment {
			outcome, err = payComment(book, pv)
		} else {
			outcome, err = payEngagement(book, pv)
		}
		if err != nil || outcome != OutcomeApproved {
			return err
		}

		if pv.TaskType == db.TaskFollow {
			var follows db.FollowGraph
			if err := tx.Load(db.DocFollows, &follows); err != nil {
				return err
			}
			follows[db.FollowKey(pv.SellerID, pv.RequesterID)] = true
			if err := tx.Save(db.DocFollows, follows); err != nil {
				return err
			}
		}
		if pv.IsComment && confirmTask(req, pv) {
			return tx.Save(db.DocRequests, requests)
		}
		return nil
	})
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("settle %s: %w", id, err)
	}

	observability.RecordSettlement(source, outcome == OutcomeApproved)
	s.afterSettlement(ctx, pv, outcome, source)
	return nil
}

func payComment(book *ledger.Book, pv *db.PendingVerification) (Outcome, error) {
	ref := ledger.Memo{Reference: pv.ID}
	hold := book.Hold(pv.RequestID)
	shortfall := decimal.Zero
	if hold.LessThan(pv.Price) {
		shortfall = pv.Price.Sub(hold)
	}
	if book.Balance(pv.RequesterID).LessThan(shortfall) {
		return OutcomeInsufficientFunds, nil
	}
	book.ConsumeEscrow(pv.RequestID, pv.Price)
	if shortfall.IsPositive() {
		ref.Reason = ledger.ReasonPayment
		if err := book.Debit(pv.RequesterID, shortfall, ref); err != nil {
			return 0, err
		}
	}
	ref.Reason = ledger.ReasonPayout
	if err := book.Credit(pv.SellerID, pv.Price, ref); err != nil {
		return 0, err
	}
	if subsidy := ledger.Subsidy(pv.Price, pv.UserPays); subsidy.IsPositive() {
		ref.Reason = ledger.ReasonSubsidyRefund
		if err := book.Credit(pv.RequesterID, subsidy, ref); err != nil {
			return 0, err
		}
	}
	return OutcomeApproved, nil
}

func payEngagement(book *ledger.Book, pv *db.PendingVerification) (Outcome, error) {
	if book.Balance(pv.RequesterID).LessThan(pv.UserPays) {
		return OutcomeInsufficientFunds, nil
	}
	if err := book.Debit(pv.RequesterID, pv.UserPays, ledger.Memo{Reason: ledger.ReasonPayment, Reference: pv.ID}); err != nil {
		return 0, err
	}
	if err := book.Credit(pv.SellerID, pv.Price, ledger.Memo{Reason: ledger.ReasonPayout, Reference: pv.ID}); err != nil {
		return 0, err
	}
	return OutcomeApproved, nil
}

func assignedTask(req *db.Request, pv *db.PendingVerification) *db.Task {
	if req == nil || pv.TaskIdx == nil || *pv.TaskIdx < 0 || *pv.TaskIdx >= len(req.Tasks) {
		return nil
	}
	task := &req.Tasks[*pv.TaskIdx]
	if task.AssignedTo == nil || *task.AssignedTo != pv.SellerID {
		return nil
	}
	return task
}

func revertTask(req *db.Request, pv *db.PendingVerification) bool {
	task := assignedTask(req, pv)
	if task == nil {
		return false
	}
	task.Status = db.TaskOpen
	task.AssignedTo = nil
	return true
}

func confirmTask(req *db.Request, pv *db.PendingVerification) bool {
	task := assignedTask(req, pv)
	if task == nil {
		return false
	}
	task.Status = db.TaskConfirmed
	return true
}

func (s *Scheduler) afterSettlement(ctx context.Context, pv *db.PendingVerification, outcome Outcome, source string) {
	s.getLogEntry().
		WithField("verification", pv.ID).
		WithField("request", pv.RequestID).
		WithField("source", source).
		WithField("outcome", int(outcome)).
		Info("verification settled")

	if s.refresher != nil {
		s.refresher.Refresh(ctx, pv.RequestID)
	}
	s.notifier.Delete(pv.Notification)

	data := map[string]any{
		"requester": platform.Mention(pv.RequesterID),
		"seller":    platform.Mention(pv.SellerID),
		"task":      pv.TaskType,
		"price":     pv.Price.String(),
		"user_pays": pv.UserPays.String(),
	}
	switch outcome {
	case OutcomeRejected:
		s.notifier.Direct(pv.SellerID, tool.ExecTemplate(
			i18n.Get("❌ {{ .requester }} rejected the verification of your **{{ .task }}** task. You did not receive points.", s.cfg.Language),
			data,
		), "")
	case OutcomeInsufficientFunds:
		s.notifier.Direct(pv.SellerID, i18n.Get("❌ Payment failed: the buyer ran out of points.", s.cfg.Language), "")
	case OutcomeStale:
		s.notifier.Direct(pv.SellerID, tool.ExecTemplate(
			i18n.Get("⌛ The request for your **{{ .task }}** task has already expired. You did not receive points.", s.cfg.Language),
			data,
		), "")
	case OutcomeApproved:
		if subsidy := ledger.Subsidy(pv.Price, pv.UserPays); subsidy.IsPositive() {
			data["subsidy"] = subsidy.String()
		}
		s.notifier.Channel(s.cfg.TranscriptChannelID, tool.ExecTemplate(i18n.Get(
			"✅ **Transaction complete!**\n"+
				"• Buyer: {{ .requester }}\n"+
				"• Seller: {{ .seller }}\n"+
				"• Type: {{ .task }}\n"+
				"• Paid by buyer: {{ .user_pays }} points{{ if .subsidy }} (system subsidy: {{ .subsidy }} points){{ end }}\n"+
				"• Received by seller: {{ .price }} points",
			s.cfg.Language,
		), data))
	}
}
