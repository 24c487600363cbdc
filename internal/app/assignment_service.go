// internal/app/assignment_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"obligation_engine/internal/domain/catalog"
	"obligation_engine/internal/domain/client"
	idb "obligation_engine/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ExclusionConflictError reports two obligation types from the same
// exclusion group ending up assigned together. The check queries group
// membership directly; it never guesses from type names.
type ExclusionConflictError struct {
	ClientID   int64 // 0 when the requested combination conflicts on its own
	GroupID    int64
	GroupName  string
	FirstCode  string
	SecondCode string
}

func (e *ExclusionConflictError) Error() string {
	if e.ClientID != 0 {
		return fmt.Sprintf("client %d: obligation types %s and %s are mutually exclusive (group %q)",
			e.ClientID, e.FirstCode, e.SecondCode, e.GroupName)
	}
	return fmt.Sprintf("obligation types %s and %s are mutually exclusive (group %q)",
		e.FirstCode, e.SecondCode, e.GroupName)
}

// AssignmentService manages which obligation types and profiles a client
// subscribes to.
type AssignmentService struct {
	catalogRepo catalog.Repository
	clientRepo  client.Repository
	logger      *logrus.Logger
}

func NewAssignmentService(cr catalog.Repository, clr client.Repository, logger *logrus.Logger) *AssignmentService {
	return &AssignmentService{
		catalogRepo: cr,
		clientRepo:  clr,
		logger:      logger,
	}
}

// BulkAssign adds the given types and profiles to every listed client,
// creating the subscription record on first assignment. The whole request
// is validated before anything is written: the requested combination, and
// each client's merged effective set, must not contain two members of one
// exclusion group. On conflict the operation is rejected with an
// *ExclusionConflictError naming the pair, and no client is modified.
func (s *AssignmentService) BulkAssign(ctx context.Context, clientIDs, typeIDs, profileIDs []int64) error {
	if len(clientIDs) == 0 {
		return fmt.Errorf("no clients given")
	}
	if len(typeIDs) == 0 && len(profileIDs) == 0 {
		return fmt.Errorf("nothing to assign: no types or profiles given")
	}

	// 1. Load the catalog pieces the validation needs. All types, not just
	// active ones: an inactive type still occupies its exclusion group.
	allTypes, err := s.catalogRepo.ListAllTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load obligation type catalog: %w", err)
	}
	typesByID := make(map[int64]*catalog.ObligationType, len(allTypes))
	for _, ot := range allTypes {
		typesByID[ot.ID] = ot
	}
	for _, id := range typeIDs {
		if _, ok := typesByID[id]; !ok {
			return fmt.Errorf("unknown obligation type id %d", id)
		}
	}

	profiles, err := s.catalogRepo.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load obligation profiles: %w", err)
	}
	profilesByID := make(map[int64]*catalog.Profile, len(profiles))
	for _, p := range profiles {
		profilesByID[p.ID] = p
	}
	for _, id := range profileIDs {
		if _, ok := profilesByID[id]; !ok {
			return fmt.Errorf("unknown obligation profile id %d", id)
		}
	}

	groups, err := s.catalogRepo.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to load exclusion groups: %w", err)
	}
	groupNames := make(map[int64]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	// 2. Load every target client's record (or prepare a fresh one), and
	// collect all profile ids involved anywhere.
	type plan struct {
		co    *client.ClientObligation
		isNew bool
	}
	plans := make([]plan, 0, len(clientIDs))
	involvedProfiles := unionIDs(nil, profileIDs)
	for _, clientID := range clientIDs {
		if _, err := s.clientRepo.GetClientByID(ctx, clientID); err != nil {
			return fmt.Errorf("failed to load client %d: %w", clientID, err)
		}
		co, err := s.clientRepo.GetObligationByClientID(ctx, clientID)
		if err != nil {
			if !errors.Is(err, idb.ErrClientObligationNotFound) {
				return fmt.Errorf("failed to load obligation record for client %d: %w", clientID, err)
			}
			co = &client.ClientObligation{ClientID: clientID, IsActive: true}
			plans = append(plans, plan{co: co, isNew: true})
		} else {
			plans = append(plans, plan{co: co})
		}
		involvedProfiles = unionIDs(involvedProfiles, co.ProfileIDs)
	}

	members, err := s.catalogRepo.ProfileTypeIDs(ctx, involvedProfiles)
	if err != nil {
		return fmt.Errorf("failed to load profile members: %w", err)
	}

	// 3. Validate the requested combination on its own.
	requested := &client.ClientObligation{TypeIDs: typeIDs, ProfileIDs: profileIDs}
	if conflict := checkExclusions(resolveKnown(requested.EffectiveTypeIDs(members), typesByID), groupNames, 0); conflict != nil {
		return conflict
	}

	// 4. Validate every client's merged set before touching anything.
	for i := range plans {
		co := plans[i].co
		co.TypeIDs = unionIDs(co.TypeIDs, typeIDs)
		co.ProfileIDs = unionIDs(co.ProfileIDs, profileIDs)
		effective := resolveKnown(co.EffectiveTypeIDs(members), typesByID)
		if conflict := checkExclusions(effective, groupNames, co.ClientID); conflict != nil {
			return conflict
		}
	}

	// 5. Apply.
	for _, p := range plans {
		if p.isNew {
			err = s.clientRepo.CreateObligation(ctx, p.co)
		} else {
			err = s.clientRepo.UpdateObligation(ctx, p.co)
		}
		if err != nil {
			return fmt.Errorf("failed to save obligation record for client %d: %w", p.co.ClientID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"client_id": p.co.ClientID,
			"types":     len(p.co.TypeIDs),
			"profiles":  len(p.co.ProfileIDs),
			"created":   p.isNew,
		}).Info("Client obligation assignments updated")
	}
	return nil
}

// SetActive toggles whether the client participates in generation at all.
func (s *AssignmentService) SetActive(ctx context.Context, clientID int64, active bool) (*client.ClientObligation, error) {
	co, err := s.clientRepo.GetObligationByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligation record for client %d: %w", clientID, err)
	}
	if co.IsActive == active {
		return co, nil
	}
	co.IsActive = active
	if err := s.clientRepo.UpdateObligation(ctx, co); err != nil {
		return nil, fmt.Errorf("failed to save obligation record for client %d: %w", clientID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"client_id": clientID,
		"is_active": active,
	}).Info("Client participation toggled")
	return co, nil
}

// checkExclusions scans a sorted effective set for two members of the same
// exclusion group.
func checkExclusions(effective []*catalog.ObligationType, groupNames map[int64]string, clientID int64) *ExclusionConflictError {
	seen := make(map[int64]*catalog.ObligationType)
	for _, ot := range effective {
		if !ot.GroupID.Valid {
			continue
		}
		gid := ot.GroupID.Int64
		if prev, ok := seen[gid]; ok && prev.ID != ot.ID {
			return &ExclusionConflictError{
				ClientID:   clientID,
				GroupID:    gid,
				GroupName:  groupNames[gid],
				FirstCode:  prev.Code,
				SecondCode: ot.Code,
			}
		}
		seen[gid] = ot
	}
	return nil
}

// resolveKnown maps type ids to catalog entries, dropping ids the catalog
// no longer knows, and sorts the result so conflict reporting is
// deterministic.
func resolveKnown(ids []int64, typesByID map[int64]*catalog.ObligationType) []*catalog.ObligationType {
	types := make([]*catalog.ObligationType, 0, len(ids))
	for _, id := range ids {
		if ot, ok := typesByID[id]; ok {
			types = append(types, ot)
		}
	}
	catalog.SortTypes(types)
	return types
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
