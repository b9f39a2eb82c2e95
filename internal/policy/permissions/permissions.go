package permissions

import (
	"context"
	"fmt"

	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

// RoleLookup resolves a role name to its id.
type RoleLookup interface {
	Resolve(ctx context.Context, name string) (string, bool, error)
}

// Gate grants privileged commands to holders of one named role.
type Gate struct {
	roles    platform.Roles
	lookup   RoleLookup
	roleName string
}

func NewGate(roles platform.Roles, lookup RoleLookup, roleName string) *Gate {
	return &Gate{roles: roles, lookup: lookup, roleName: roleName}
}

func (g *Gate) RoleName() string {
	return g.roleName
}

// Require fails with ErrUnauthorized unless memberID holds the role.
func (g *Gate) Require(ctx context.Context, memberID string) error {
	roleID, ok, err := g.lookup.Resolve(ctx, g.roleName)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", g.roleName, err)
	}
	if !ok {
		return fmt.Errorf("role %s does not exist: %w", g.roleName, errors.ErrUnauthorized)
	}
	held, err := g.roles.MemberRoles(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member roles: %w", err)
	}
	if !platform.HasRole(held, roleID) {
		return fmt.Errorf("%s lacks %s: %w", memberID, g.roleName, errors.ErrUnauthorized)
	}
	return nil
}
