package tiers

import (
	"context"
	"sync"

	"github.com/iamwavecut/pasarbot/internal/platform"
)

// RoleResolver resolves role ids by name, loading the guild roles once.
type RoleResolver struct {
	roles platform.Roles
	mu    sync.Mutex
	ids   map[string]string
}

func NewRoleResolver(roles platform.Roles) *RoleResolver {
	return &RoleResolver{roles: roles}
}

func (r *RoleResolver) Resolve(ctx context.Context, name string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		ids, err := r.roles.RoleIDs(ctx)
		if err != nil {
			return "", false, err
		}
		r.ids = ids
	}
	id, ok := r.ids[name]
	return id, ok, nil
}

func (r *RoleResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = nil
}
