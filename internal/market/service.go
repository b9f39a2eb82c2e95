package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/eligibility"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
	"github.com/iamwavecut/pasarbot/internal/verification"
)

const (
	MinDays = 1
	MaxDays = 7
)

type (
	Verifier interface {
		Open(ctx context.Context, claim verification.Claim) error
	}

	Config struct {
		Language      string
		SweepInterval time.Duration
	}

	BuyInput struct {
		RequesterID string
		ChannelID   string
		Days        int
		Link        string
		CommentsRaw string
	}

	Service struct {
		ledger    *ledger.Ledger
		store     db.DocumentStore
		messenger platform.Messenger
		verifier  Verifier
		notifier  verification.Notifier
		gate      eligibility.Gate
		cfg       Config
		clock     func() time.Time

		mu      sync.Mutex
		cancel  context.CancelFunc
		wg      sync.WaitGroup
		started bool
	}
)

func NewService(l *ledger.Ledger, store db.DocumentStore, messenger platform.Messenger, verifier Verifier, notifier verification.Notifier, cfg Config) *Service {
	return &Service{
		ledger:    l,
		store:     store,
		messenger: messenger,
		verifier:  verifier,
		notifier:  notifier,
		cfg:       cfg,
		clock:     time.Now,
	}
}

func (s *Service) getLogEntry() *log.Entry {
	return log.WithField("component", "market")
}

// ParseComments returns the non-blank comment lines of raw.
func ParseComments(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Quote is the escrow a buy of raw comments takes.
func Quote(commentsRaw string) decimal.Decimal {
	price, _ := ledger.Price(db.TaskComment)
	return price.Mul(decimal.NewFromInt(int64(len(ParseComments(commentsRaw)))))
}

func validLink(link string) bool {
	return strings.Contains(link, "x.com/") || strings.Contains(link, "twitter.com/")
}

// Buy escrows the comment budget, persists the request and posts its display.
func (s *Service) Buy(ctx context.Context, in BuyInput) (*db.Request, error) {
	if !validLink(in.Link) {
		return nil, ErrInvalidLink
	}
	if in.Days < MinDays || in.Days > MaxDays {
		return nil, ErrInvalidDays
	}
	lines := ParseComments(in.CommentsRaw)
	if len(lines) == 0 {
		return nil, ErrNoComments
	}

	price, _ := ledger.Price(db.TaskComment)
	now := s.clock()
	req := &db.Request{
		ID:          uuid.New(),
		RequesterID: in.RequesterID,
		Link:        in.Link,
		ChannelID:   in.ChannelID,
		LikedBy:     []string{},
		RetweetedBy: []string{},
		FollowedBy:  []string{},
		ExpiresAt:   now.Add(time.Duration(in.Days) * 24 * time.Hour),
		CreatedAt:   now,
	}
	for _, line := range lines {
		req.Tasks = append(req.Tasks, db.Task{Type: db.TaskComment, Text: line, Price: price, Status: db.TaskOpen})
	}
	total := price.Mul(decimal.NewFromInt(int64(len(lines))))

	err := s.ledger.Do(ctx, func(tx db.Tx, book *ledger.Book) error {
		if err := book.OpenEscrow(req.ID, req.RequesterID, total); err != nil {
			return err
		}
		var requests db.Requests
		if err := tx.Load(db.DocRequests, &requests); err != nil {
			return err
		}
		requests[req.ID] = req
		return tx.Save(db.DocRequests, requests)
	})
	if err != nil {
		return nil, fmt.Errorf("open request: %w", err)
	}

	entry := s.getLogEntry().WithField("request", req.ID)
	ref, err := s.messenger.SendEmbed(ctx, in.ChannelID, Render(req, s.cfg.Language))
	if err != nil {
		if cerr := s.cancelRequest(ctx, req); cerr != nil {
			entry.WithField("error", cerr.Error()).Error("cant compensate request after display failure")
		}
		return nil, fmt.Errorf("post display: %w", err)
	}

	err = s.store.Transact(ctx, func(tx db.Tx) error {
		var requests db.Requests
		if err := tx.Load(db.DocRequests, &requests); err != nil {
			return err
		}
		stored, ok := requests[req.ID]
		if !ok {
			return nil
		}
		stored.Display = ref
		return tx.Save(db.DocRequests, requests)
	})
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant store display ref")
	}
	req.Display = ref

	for _, emblem := range platform.EngagementEmblems {
		if err := s.messenger.React(ctx, ref, emblem); err != nil {
			entry.WithField("error", err.Error()).Warn("cant add engagement emblem")
		}
	}
	entry.WithField("total", total.String()).Info("request opened")
	return req, nil
}

func (s *Service) cancelRequest(ctx context.Context, req *db.Request) error {
	return s.ledger.Do(ctx, func(tx db.Tx, book *ledger.Book) error {
		book.ReleaseEscrow(req.ID, req.RequesterID)
		var requests db.Requests
		if err := tx.Load(db.DocRequests, &requests); err != nil {
			return err
		}
		delete(requests, req.ID)
		return tx.Save(db.DocRequests, requests)
	})
}

// Refresh re-renders the display of requestID when it still exists.
func (s *Service) Refresh(ctx context.Context, requestID string) {
	var requests db.Requests
	if err := s.store.Read(ctx, db.DocRequests, &requests); err != nil {
		s.getLogEntry().WithField("error", err.Error()).Warn("cant read requests for refresh")
		return
	}
	req, ok := requests[requestID]
	if !ok || req.Display.IsZero() {
		return
	}
	if err := s.messenger.EditEmbed(ctx, req.Display, Render(req, s.cfg.Language)); err != nil {
		s.getLogEntry().WithField("request", requestID).WithField("error", err.Error()).Debug("cant refresh display")
	}
}

func (s *Service) Balance(ctx context.Context, member string) (decimal.Decimal, error) {
	return s.ledger.Balance(ctx, member)
}

func (s *Service) Requests(ctx context.Context) (db.Requests, error) {
	var requests db.Requests
	if err := s.store.Read(ctx, db.DocRequests, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// RequestByDisplay finds the request shown by the display message ref.
func (s *Service) RequestByDisplay(ctx context.Context, ref db.MessageRef) (*db.Request, error) {
	requests, err := s.Requests(ctx)
	if err != nil {
		return nil, err
	}
	req, ok := requests.FindByDisplay(ref)
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}
