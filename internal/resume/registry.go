package resume

import (
	"context"
	"fmt"
)

// Registry resolves the résumé profile(s) available to automated callers
// such as C13's monitor auto-repair loop, which needs a profile without a
// human in the loop to pick one (spec §9 open question).
type Registry interface {
	Default(ctx context.Context) (*Profile, error)
}

// StaticRegistry always returns the same profile, e.g. one loaded once
// at startup from a configured file path.
type StaticRegistry struct {
	profile *Profile
}

func NewStaticRegistry(p *Profile) *StaticRegistry {
	return &StaticRegistry{profile: p}
}

func (r *StaticRegistry) Default(_ context.Context) (*Profile, error) {
	if r.profile == nil {
		return nil, fmt.Errorf("no default resume profile configured")
	}
	return r.profile, nil
}
