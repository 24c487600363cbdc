// internal/app/generation_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"obligation_engine/internal/domain/catalog"
	"obligation_engine/internal/domain/client"
	"obligation_engine/internal/domain/monthly"
	"obligation_engine/internal/domain/report"
	idb "obligation_engine/internal/infra/database" // Alias for repository sentinel errors

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GenerateOptions selects the target period, population and mode of one
// generation run.
type GenerateOptions struct {
	Year      int
	Month     time.Month
	ClientIDs []int64  // restrict to these clients; empty means all active
	TypeCodes []string // restrict to these obligation type codes; empty means all
	DryRun    bool     // full run inside one rolled-back transaction
	Force     bool     // recreate existing rows, discarding their state
}

// GenerationService runs the monthly materialization batch: for a target
// period it decides which obligations each client owes and creates exactly
// one tracked row per (client, type, year, month).
type GenerationService interface {
	Generate(ctx context.Context, opts GenerateOptions) (*report.RunSummary, error)
}

// GenerationServiceImpl implements GenerationService on the Postgres-backed
// repositories.
type GenerationServiceImpl struct {
	catalogRepo catalog.Repository
	clientRepo  client.Repository
	monthlyRepo monthly.Repository
	logger      *logrus.Logger
}

func NewGenerationServiceImpl(
	cr catalog.Repository,
	clr client.Repository,
	mr monthly.Repository,
	logger *logrus.Logger,
) *GenerationServiceImpl {
	return &GenerationServiceImpl{
		catalogRepo: cr,
		clientRepo:  clr,
		monthlyRepo: mr,
		logger:      logger,
	}
}

// Generate executes one batch run. Per-pair failures are collected on the
// summary and never abort the rest of the run; only cancellation and
// failures that prevent any progress (catalog or population unreadable,
// invalid period) surface as an error. A non-nil summary is returned even
// alongside a cancellation error, covering whatever was processed.
func (s *GenerationServiceImpl) Generate(ctx context.Context, opts GenerateOptions) (*report.RunSummary, error) {
	if opts.Month < time.January || opts.Month > time.December {
		return nil, fmt.Errorf("invalid month %d: must be within 1..12", int(opts.Month))
	}
	if opts.Year < 2000 || opts.Year > 2100 {
		return nil, fmt.Errorf("implausible target year %d", opts.Year)
	}

	summary := &report.RunSummary{
		RunID:     uuid.New(),
		Year:      opts.Year,
		Month:     opts.Month,
		DryRun:    opts.DryRun,
		Force:     opts.Force,
		StartedAt: time.Now(),
	}
	stats := make(map[int64]*report.TypeStats)
	finish := func() {
		summary.Duration = time.Since(summary.StartedAt)
		perType := make([]*report.TypeStats, 0, len(stats))
		for _, st := range stats {
			perType = append(perType, st)
		}
		sort.Slice(perType, func(i, j int) bool { return perType[i].Code < perType[j].Code })
		summary.PerType = perType
	}

	log := s.logger.WithFields(logrus.Fields{
		"run_id":  summary.RunID,
		"period":  summary.Period(),
		"dry_run": opts.DryRun,
		"force":   opts.Force,
	})
	log.Info("Starting obligation generation run")

	// 1. Load the catalog once; it is reference data for the whole run.
	activeTypes, err := s.catalogRepo.ListActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligation type catalog: %w", err)
	}
	typesByID := make(map[int64]*catalog.ObligationType, len(activeTypes))
	for _, ot := range activeTypes {
		typesByID[ot.ID] = ot
	}
	typeFilter, err := resolveTypeFilter(activeTypes, opts.TypeCodes)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the client population: every active subscription record,
	// or the caller-supplied subset.
	var records []*client.ClientObligation
	if len(opts.ClientIDs) > 0 {
		records, err = s.clientRepo.ListActiveObligationsByClientIDs(ctx, opts.ClientIDs)
	} else {
		records, err = s.clientRepo.ListActiveObligations(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list client obligation records: %w", err)
	}
	if len(records) == 0 {
		log.Info("No active client obligation records; nothing to generate")
		finish()
		return summary, nil
	}

	// 3. Resolve profile membership for every profile in the population.
	members, err := s.catalogRepo.ProfileTypeIDs(ctx, collectProfileIDs(records))
	if err != nil {
		return nil, fmt.Errorf("failed to load profile members: %w", err)
	}

	// 4. Choose the write target. A dry run works inside one transaction
	// that is rolled back at the end, so its counts come from the same
	// constraint behavior as a real run while nothing survives.
	store := monthly.Store(s.monthlyRepo)
	if opts.DryRun {
		txn, beginErr := s.monthlyRepo.Begin(ctx)
		if beginErr != nil {
			return nil, fmt.Errorf("failed to begin dry-run transaction: %w", beginErr)
		}
		defer func() {
			if rbErr := txn.Rollback(); rbErr != nil {
				log.WithError(rbErr).Warn("Dry-run rollback reported an error")
			}
		}()
		store = txn
	}

	warnedNoDeadline := make(map[int64]bool)

	// 5. Walk every (client, type) pair.
	for _, record := range records {
		if ctx.Err() != nil {
			finish()
			return summary, fmt.Errorf("generation aborted: %w", ctx.Err())
		}
		summary.ClientsProcessed++

		for _, ot := range effectiveTypes(record, members, typesByID, typeFilter) {
			if !ot.AppliesToMonth(opts.Month) {
				summary.NotApplicable++
				continue
			}
			deadline, ok := ot.Deadline(opts.Year, opts.Month)
			if !ok {
				summary.NotApplicable++
				if !warnedNoDeadline[ot.ID] {
					warnedNoDeadline[ot.ID] = true
					log.WithField("type_code", ot.Code).Warn("Obligation type has no resolvable deadline; all its pairs are skipped")
				}
				continue
			}

			st := statFor(stats, ot)
			o := &monthly.Obligation{
				ClientID: record.ClientID,
				TypeID:   ot.ID,
				Year:     opts.Year,
				Month:    opts.Month,
				Deadline: deadline,
				Status:   monthly.StatusPending,
			}
			// Generating an already-elapsed period yields rows that are
			// overdue from the start.
			o.RefreshStatus(time.Now())

			if opts.Force {
				deleted, delErr := store.DeleteByKey(ctx, o.Key())
				if delErr != nil {
					if ctx.Err() != nil {
						finish()
						return summary, fmt.Errorf("generation aborted: %w", ctx.Err())
					}
					recordPairError(log, summary, st, record.ClientID, ot, delErr)
					continue
				}
				if deleted > 0 {
					log.WithFields(logrus.Fields{
						"client_id": record.ClientID,
						"type_code": ot.Code,
					}).Warn("Force mode removed an existing obligation; its completion state and notes are gone")
				}
			}

			createErr := store.Create(ctx, o)
			switch {
			case createErr == nil:
				summary.Created++
				st.Created++
			case errors.Is(createErr, idb.ErrDuplicateObligation):
				// The row already exists for this key: the run is a re-run
				// (or a concurrent generator won). Not an error.
				summary.Skipped++
				st.Skipped++
			default:
				if ctx.Err() != nil {
					finish()
					return summary, fmt.Errorf("generation aborted: %w", ctx.Err())
				}
				recordPairError(log, summary, st, record.ClientID, ot, createErr)
			}
		}
	}

	finish()
	log.WithFields(logrus.Fields{
		"clients":        summary.ClientsProcessed,
		"created":        summary.Created,
		"skipped":        summary.Skipped,
		"not_applicable": summary.NotApplicable,
		"errors":         len(summary.Errors),
		"duration":       summary.Duration,
	}).Info("Obligation generation run finished")
	if opts.DryRun {
		log.Info("Dry run: all writes will be rolled back")
	}
	return summary, nil
}

// resolveTypeFilter maps requested codes to an id set. An unknown code is a
// fatal misconfiguration: the caller asked for something the active catalog
// cannot satisfy, so no progress is possible on it.
func resolveTypeFilter(activeTypes []*catalog.ObligationType, codes []string) (map[int64]bool, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	byCode := make(map[string]*catalog.ObligationType, len(activeTypes))
	for _, ot := range activeTypes {
		byCode[ot.Code] = ot
	}
	filter := make(map[int64]bool, len(codes))
	for _, code := range codes {
		ot, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("unknown or inactive obligation type code %q", code)
		}
		filter[ot.ID] = true
	}
	return filter, nil
}

// effectiveTypes resolves the client's deduplicated type set to catalog
// entries, drops inactive or unknown ids, applies the optional filter and
// sorts for deterministic processing.
func effectiveTypes(
	record *client.ClientObligation,
	members map[int64][]int64,
	typesByID map[int64]*catalog.ObligationType,
	filter map[int64]bool,
) []*catalog.ObligationType {
	ids := record.EffectiveTypeIDs(members)
	types := make([]*catalog.ObligationType, 0, len(ids))
	for _, id := range ids {
		ot, ok := typesByID[id]
		if !ok {
			continue // assigned type is inactive or gone; not generated
		}
		if filter != nil && !filter[ot.ID] {
			continue
		}
		types = append(types, ot)
	}
	catalog.SortTypes(types)
	return types
}

func collectProfileIDs(records []*client.ClientObligation) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, record := range records {
		for _, id := range record.ProfileIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func statFor(stats map[int64]*report.TypeStats, ot *catalog.ObligationType) *report.TypeStats {
	st, ok := stats[ot.ID]
	if !ok {
		st = &report.TypeStats{TypeID: ot.ID, Code: ot.Code, Name: ot.Name}
		stats[ot.ID] = st
	}
	return st
}

func recordPairError(log *logrus.Entry, summary *report.RunSummary, st *report.TypeStats, clientID int64, ot *catalog.ObligationType, err error) {
	log.WithFields(logrus.Fields{
		"client_id": clientID,
		"type_id":   ot.ID,
		"type_code": ot.Code,
	}).WithError(err).Error("Failed to process client/type pair; continuing with the rest")
	summary.Errors = append(summary.Errors, report.RunError{
		ClientID: clientID,
		TypeID:   ot.ID,
		TypeCode: ot.Code,
		Message:  err.Error(),
	})
	st.Errors++
}
