package observability

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/iamwavecut/pasarbot/internal/db"
)

// AuditJournal writes every ledger movement as a structured audit line,
// counts it and appends it to the persistent journal when one is configured.
type AuditJournal struct {
	logger  *zap.Logger
	journal db.Journal
}

func NewAuditJournal(logger *zap.Logger, journal db.Journal) *AuditJournal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditJournal{logger: logger, journal: journal}
}

func (a *AuditJournal) Observe(ctx context.Context, entries []db.JournalEntry) {
	for _, e := range entries {
		transfersTotal.WithLabelValues(e.Reason).Inc()
		a.logger.Info("ledger movement",
			zap.String("account", e.Account),
			zap.String("delta", e.Delta.String()),
			zap.String("reason", e.Reason),
			zap.String("reference", e.Reference),
			zap.Time("at", e.CreatedAt),
		)
	}
	if a.journal == nil {
		return
	}
	if err := a.journal.AppendJournal(ctx, entries); err != nil {
		log.WithField("component", "audit").WithField("error", err.Error()).Warn("cant append journal")
	}
}
