// internal/domain/catalog/repository.go
package catalog

import "context"

// Repository defines persistence operations for the obligation catalog:
// types, exclusion groups and profiles. The catalog is reference data,
// loaded once per batch run.
type Repository interface {
	// ObligationType methods
	CreateType(ctx context.Context, t *ObligationType) error
	GetTypeByID(ctx context.Context, id int64) (*ObligationType, error)
	GetTypeByCode(ctx context.Context, code string) (*ObligationType, error)
	UpdateType(ctx context.Context, t *ObligationType) error
	ListActiveTypes(ctx context.Context) ([]*ObligationType, error)
	ListAllTypes(ctx context.Context) ([]*ObligationType, error) // For admin/overview

	// Group methods
	CreateGroup(ctx context.Context, g *Group) error
	GetGroupByID(ctx context.Context, id int64) (*Group, error)
	ListGroups(ctx context.Context) ([]*Group, error)

	// Profile methods
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfileByID(ctx context.Context, id int64) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
	// SetProfileTypes replaces the profile's member set wholesale.
	SetProfileTypes(ctx context.Context, profileID int64, typeIDs []int64) error
	// ProfileTypeIDs resolves profile membership for aggregation: a map from
	// each requested profile id to its member type ids. Unknown profile ids
	// are simply absent from the result.
	ProfileTypeIDs(ctx context.Context, profileIDs []int64) (map[int64][]int64, error)
}
