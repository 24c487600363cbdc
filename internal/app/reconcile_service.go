// internal/app/reconcile_service.go
package app

import (
	"context"
	"fmt"

	"obligation_engine/internal/domain/monthly"
	"obligation_engine/internal/domain/report"

	"github.com/sirupsen/logrus"
)

// ReconcileService collapses duplicate monthly obligations left over from
// imports that predate the unique period constraint.
type ReconcileService struct {
	monthlyRepo monthly.Repository
	logger      *logrus.Logger
}

func NewReconcileService(mr monthly.Repository, logger *logrus.Logger) *ReconcileService {
	return &ReconcileService{
		monthlyRepo: mr,
		logger:      logger,
	}
}

// ReconcileDuplicates keeps exactly one row per (client, type, year, month)
// and deletes the rest. The survivor is the row whose status carries the
// most information: completed over overdue over pending, ties broken by the
// oldest (smallest) id.
func (s *ReconcileService) ReconcileDuplicates(ctx context.Context) (*report.ReconcileSummary, error) {
	summary := &report.ReconcileSummary{}

	before, err := s.monthlyRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count monthly obligations: %w", err)
	}
	summary.RowsBefore = before

	dupes, err := s.monthlyRepo.ListDuplicates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate obligations: %w", err)
	}

	byKey := make(map[monthly.Key][]*monthly.Obligation)
	for _, o := range dupes {
		byKey[o.Key()] = append(byKey[o.Key()], o)
	}
	summary.GroupsFound = len(byKey)

	var losers []int64
	for key, group := range byKey {
		survivor := monthly.PickSurvivor(group)
		if survivor == nil {
			continue
		}
		for _, o := range group {
			if o.ID != survivor.ID {
				losers = append(losers, o.ID)
			}
		}
		s.logger.WithFields(logrus.Fields{
			"client_id":   key.ClientID,
			"type_id":     key.TypeID,
			"period":      fmt.Sprintf("%04d-%02d", key.Year, int(key.Month)),
			"rows":        len(group),
			"survivor_id": survivor.ID,
			"status":      survivor.Status,
		}).Info("Duplicate obligation group reconciled")
	}

	if len(losers) > 0 {
		deleted, err := s.monthlyRepo.DeleteByIDs(ctx, losers)
		if err != nil {
			return nil, fmt.Errorf("failed to delete duplicate obligations: %w", err)
		}
		summary.Deleted = deleted
	}

	after, err := s.monthlyRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count monthly obligations: %w", err)
	}
	summary.RowsAfter = after

	s.logger.WithFields(logrus.Fields{
		"groups":      summary.GroupsFound,
		"deleted":     summary.Deleted,
		"rows_before": summary.RowsBefore,
		"rows_after":  summary.RowsAfter,
	}).Info("Duplicate reconciliation finished")
	return summary, nil
}
