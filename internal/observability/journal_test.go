package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iamwavecut/pasarbot/internal/db"
)

type memJournal struct {
	entries []db.JournalEntry
}

func (m *memJournal) AppendJournal(_ context.Context, entries []db.JournalEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memJournal) JournalFor(context.Context, string, int) ([]db.JournalEntry, error) {
	return m.entries, nil
}

func TestAuditJournalLogsCountsAndPersists(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	journal := &memJournal{}
	audit := NewAuditJournal(zap.New(core), journal)

	before := testutil.ToFloat64(transfersTotal.WithLabelValues("gift_tax"))
	audit.Observe(context.Background(), []db.JournalEntry{
		{Account: "a", Delta: decimal.NewFromInt(-1), Reason: "gift_tax"},
		{Account: "b", Delta: decimal.NewFromInt(2), Reason: "gift"},
	})

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "a", logs.All()[0].ContextMap()["account"])
	assert.Len(t, journal.entries, 2)
	assert.Equal(t, before+1, testutil.ToFloat64(transfersTotal.WithLabelValues("gift_tax")))
}

func TestRecordSettlementOutcomeLabel(t *testing.T) {
	before := testutil.ToFloat64(settlementsTotal.WithLabelValues("timeout", "approved"))
	RecordSettlement("timeout", true)
	assert.Equal(t, before+1, testutil.ToFloat64(settlementsTotal.WithLabelValues("timeout", "approved")))
}
