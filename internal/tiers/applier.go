package tiers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

type Balances interface {
	Balance(ctx context.Context, member string) (decimal.Decimal, error)
}

// Applier keeps member tier roles in line with balances and gift counters.
type Applier struct {
	balances       Balances
	store          db.DocumentStore
	roles          platform.Roles
	resolver       *RoleResolver
	benefactorRole string
}

var _ ledger.Observer = (*Applier)(nil)

func NewApplier(balances Balances, store db.DocumentStore, roles platform.Roles, resolver *RoleResolver, benefactorRole string) *Applier {
	return &Applier{
		balances:       balances,
		store:          store,
		roles:          roles,
		resolver:       resolver,
		benefactorRole: benefactorRole,
	}
}

func (a *Applier) getLogEntry() *log.Entry {
	return log.WithField("component", "tiers")
}

func (a *Applier) Standing(ctx context.Context, member string) (Standing, error) {
	balance, err := a.balances.Balance(ctx, member)
	if err != nil {
		return Standing{}, err
	}
	var gifts db.GiverCounts
	if err := a.store.Read(ctx, db.DocGiverCount, &gifts); err != nil {
		return Standing{}, fmt.Errorf("read giver counts: %w", err)
	}
	return Derive(balance, gifts.Count(member), gifts.Volume(member)), nil
}

// Apply grants the derived tier and strips every other tier role.
func (a *Applier) Apply(ctx context.Context, member string) error {
	standing, err := a.Standing(ctx, member)
	if err != nil {
		return err
	}
	current, err := a.roles.MemberRoles(ctx, member)
	if err != nil {
		return fmt.Errorf("member roles: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tier := range Ladder {
		id, ok, err := a.resolver.Resolve(ctx, tier.Role)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", tier.Role, err)
		}
		if !ok {
			continue
		}
		held := platform.HasRole(current, id)
		switch {
		case tier.Role == standing.Tier && !held:
			g.Go(func() error { return a.roles.AddRole(gctx, member, id) })
		case tier.Role != standing.Tier && held:
			g.Go(func() error { return a.roles.RemoveRole(gctx, member, id) })
		}
	}

	if id, ok, err := a.resolver.Resolve(ctx, a.benefactorRole); err != nil {
		return fmt.Errorf("resolve %s: %w", a.benefactorRole, err)
	} else if ok {
		held := platform.HasRole(current, id)
		switch {
		case standing.Benefactor && !held:
			g.Go(func() error { return a.roles.AddRole(gctx, member, id) })
		case !standing.Benefactor && held:
			g.Go(func() error { return a.roles.RemoveRole(gctx, member, id) })
		}
	}
	return g.Wait()
}

func (a *Applier) Observe(ctx context.Context, entries []ledger.Entry) {
	for _, member := range ledger.Members(entries) {
		if err := a.Apply(ctx, member); err != nil {
			a.getLogEntry().WithField("member", member).WithField("error", err.Error()).Warn("cant apply tier roles")
		}
	}
}
