// internal/app/lifecycle_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"obligation_engine/internal/domain/monthly"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the lifecycle service
var ErrNotCompleted = fmt.Errorf("obligation is not completed; nothing to reopen")

// CompleteParams carries the completion details for one obligation.
type CompleteParams struct {
	ObligationID int64
	CompletedOn  time.Time // zero value means today
	CompletedBy  string
	Notes        string
	TimeSpent    decimal.NullDecimal // hours
	HourlyRate   decimal.NullDecimal
}

// LifecycleService governs an obligation row after generation: manual
// completion, reopening, and the daily overdue sweep.
type LifecycleService struct {
	monthlyRepo monthly.Repository
	logger      *logrus.Logger
}

func NewLifecycleService(mr monthly.Repository, logger *logrus.Logger) *LifecycleService {
	return &LifecycleService{monthlyRepo: mr, logger: logger}
}

// Complete marks the obligation done, recording date, actor, optional notes
// and effort figures. Completing an already-completed row is a no-op that
// returns the row unchanged.
func (s *LifecycleService) Complete(ctx context.Context, p CompleteParams) (*monthly.Obligation, error) {
	o, err := s.monthlyRepo.GetByID(ctx, p.ObligationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligation %d: %w", p.ObligationID, err)
	}
	if o.Status == monthly.StatusCompleted {
		s.logger.WithField("obligation_id", o.ID).Info("Obligation already completed; nothing to do")
		return o, nil
	}

	completedOn := p.CompletedOn
	if completedOn.IsZero() {
		completedOn = time.Now()
	}
	o.Complete(completedOn, p.CompletedBy)
	if p.Notes != "" {
		o.Notes = sql.NullString{String: p.Notes, Valid: true}
	}
	if p.TimeSpent.Valid {
		o.TimeSpent = p.TimeSpent
	}
	if p.HourlyRate.Valid {
		o.HourlyRate = p.HourlyRate
	}
	o.RefreshStatus(time.Now())

	if err := s.monthlyRepo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save completed obligation %d: %w", o.ID, err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"obligation_id": o.ID,
		"client_id":     o.ClientID,
		"type_id":       o.TypeID,
		"completed_by":  p.CompletedBy,
	})
	if cost, ok := o.Cost(); ok {
		log = log.WithField("cost", cost.StringFixed(2))
	}
	log.Info("Obligation completed")
	return o, nil
}

// Reopen reverts a completed obligation to an open state, clearing the
// completion fields. The save-time derivation still applies, so a row whose
// deadline has already passed reopens directly as overdue.
func (s *LifecycleService) Reopen(ctx context.Context, obligationID int64) (*monthly.Obligation, error) {
	o, err := s.monthlyRepo.GetByID(ctx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligation %d: %w", obligationID, err)
	}
	if o.Status != monthly.StatusCompleted {
		return o, ErrNotCompleted
	}

	o.Reopen()
	o.RefreshStatus(time.Now())

	if err := s.monthlyRepo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save reopened obligation %d: %w", o.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"obligation_id": o.ID,
		"status":        o.Status,
	}).Info("Obligation reopened")
	return o, nil
}

// SweepOverdue flags every open obligation whose deadline has passed. The
// scheduler runs it daily; one set-based update covers rows nobody has
// touched since their deadline went by.
func (s *LifecycleService) SweepOverdue(ctx context.Context) (int64, error) {
	flagged, err := s.monthlyRepo.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to flag overdue obligations: %w", err)
	}
	if flagged > 0 {
		s.logger.WithField("flagged", flagged).Info("Overdue sweep flagged obligations past their deadline")
	} else {
		s.logger.Debug("Overdue sweep found nothing to flag")
	}
	return flagged, nil
}
