package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SettingsResolver loads an account together with its effective settings
type SettingsResolver struct {
	repo     Repository
	defaults Defaults
}

// NewSettingsResolver creates a resolver falling back to defaults
func NewSettingsResolver(repo Repository, defaults Defaults) *SettingsResolver {
	return &SettingsResolver{repo: repo, defaults: defaults}
}

// Defaults returns the tenant-wide fallbacks
func (r *SettingsResolver) Defaults() Defaults {
	return r.defaults
}

// Resolve loads the account and, for a project, its company
func (r *SettingsResolver) Resolve(ctx context.Context, tenantID, accountID uuid.UUID) (*Account, Settings, error) {
	acc, err := r.repo.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, Settings{}, err
	}
	var parent *Account
	if acc.ParentID != nil {
		parent, err = r.repo.FindByID(ctx, tenantID, *acc.ParentID)
		if err != nil {
			return nil, Settings{}, fmt.Errorf("failed to load parent of account %s: %w", acc.ID, err)
		}
	}
	return acc, acc.EffectiveSettings(parent, r.defaults), nil
}
