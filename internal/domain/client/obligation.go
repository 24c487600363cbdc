package client

import "time"

// ClientObligation is the per-client subscription record: which obligation
// types the client carries directly and which profiles bundle more in.
// One row per client, created on first assignment and never auto-deleted.
// IsActive gates whether the client participates in generation at all.
type ClientObligation struct {
	ID         int64
	ClientID   int64
	IsActive   bool
	TypeIDs    []int64 // directly-assigned obligation types
	ProfileIDs []int64 // assigned profiles, expanded during aggregation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveTypeIDs combines the directly-assigned types with the members of
// every assigned profile, deduplicated by type identity: a type reachable
// both directly and through one or more profiles appears once. Order is
// unspecified; callers needing determinism sort the resolved types
// themselves (catalog.SortTypes).
func (co *ClientObligation) EffectiveTypeIDs(profileMembers map[int64][]int64) []int64 {
	seen := make(map[int64]struct{}, len(co.TypeIDs))
	ids := make([]int64, 0, len(co.TypeIDs))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range co.TypeIDs {
		add(id)
	}
	for _, pid := range co.ProfileIDs {
		for _, id := range profileMembers[pid] {
			add(id)
		}
	}
	return ids
}
