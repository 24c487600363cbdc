package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"obligation_engine/internal/domain/catalog"
	idb "obligation_engine/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// seedCatalog inserts the standard Greek accounting-office catalog: the VAT
// exclusion group, the common obligation types and two starter profiles.
// Re-running is safe; existing entries are kept as-is, never overwritten.
func seedCatalog(ctx context.Context, repo catalog.Repository, log *logrus.Logger) error {
	vatGroupID, created, err := ensureGroup(ctx, repo, &catalog.Group{
		Name:        "VAT filing cadence",
		Description: ns("Monthly and quarterly VAT returns exclude each other per client"),
	})
	if err != nil {
		return fmt.Errorf("seed group: %w", err)
	}
	groupsCreated := 0
	if created {
		groupsCreated++
	}

	types := []*catalog.ObligationType{
		{
			Code:           "FPA_M",
			Name:           "VAT return (monthly)",
			Description:    ns("Periodic VAT return for double-entry books"),
			Frequency:      catalog.FrequencyMonthly,
			DeadlinePolicy: catalog.DeadlineLastDayOfNextMonth,
			GroupID:        sql.NullInt64{Int64: vatGroupID, Valid: true},
			Priority:       10,
			IsActive:       true,
		},
		{
			Code:           "FPA_Q",
			Name:           "VAT return (quarterly)",
			Description:    ns("Periodic VAT return for single-entry books, filed per quarter"),
			Frequency:      catalog.FrequencyQuarterly,
			DeadlinePolicy: catalog.DeadlineLastDayOfNextMonth,
			GroupID:        sql.NullInt64{Int64: vatGroupID, Valid: true},
			Priority:       10,
			IsActive:       true,
		},
		{
			Code:           "APD",
			Name:           "EFKA payroll declaration (APD)",
			Description:    ns("Monthly social-security declaration for employers"),
			Frequency:      catalog.FrequencyMonthly,
			DeadlinePolicy: catalog.DeadlineLastDayOfNextMonth,
			Priority:       20,
			IsActive:       true,
		},
		{
			Code:           "EFKA_PAY",
			Name:           "EFKA contributions payment",
			Description:    ns("Payment of the contributions declared on the APD"),
			Frequency:      catalog.FrequencyFollowsCycle,
			DeadlinePolicy: catalog.DeadlineLastDayOfNextMonth,
			Priority:       25,
			IsActive:       true,
		},
		{
			Code:           "FMY",
			Name:           "Payroll withholding tax (FMY)",
			Description:    ns("Withheld payroll income tax remittance"),
			Frequency:      catalog.FrequencyMonthly,
			DeadlinePolicy: catalog.DeadlineLastDayOfNextMonth,
			Priority:       30,
			IsActive:       true,
		},
		{
			Code:           "PARAKR",
			Name:           "Professional fees withholding",
			Description:    ns("Quarterly remittance of withheld tax on professional fees"),
			Frequency:      catalog.FrequencyQuarterly,
			DeadlinePolicy: catalog.DeadlineLastDayOfMonth,
			// Filed in the second month after each quarter closes.
			ApplicableMonths: []time.Month{time.February, time.May, time.August, time.November},
			Priority:         35,
			IsActive:         true,
		},
		{
			Code:           "MYDATA",
			Name:           "myDATA e-books transmission",
			Description:    ns("Monthly transmission of revenue/expense records to AADE myDATA"),
			Frequency:      catalog.FrequencyMonthly,
			DeadlinePolicy: catalog.DeadlineSpecificDay,
			SpecificDay:    sql.NullInt16{Int16: 20, Valid: true},
			Priority:       40,
			IsActive:       true,
		},
		{
			Code:             "E3",
			Name:             "Annual income tax return (E3)",
			Description:      ns("Business income statement filed with the annual return"),
			Frequency:        catalog.FrequencyAnnual,
			DeadlinePolicy:   catalog.DeadlineLastDayOfMonth,
			ApplicableMonths: []time.Month{time.July},
			Priority:         50,
			IsActive:         true,
		},
		{
			Code:             "E9",
			Name:             "Real estate declaration (E9)",
			Description:      ns("Annual declaration of real-estate holdings changes"),
			Frequency:        catalog.FrequencyAnnual,
			DeadlinePolicy:   catalog.DeadlineLastDayOfMonth,
			ApplicableMonths: []time.Month{time.March},
			Priority:         60,
			IsActive:         true,
		},
	}

	typesCreated := 0
	typeIDs := make(map[string]int64, len(types))
	for _, t := range types {
		id, created, err := ensureType(ctx, repo, t)
		if err != nil {
			return fmt.Errorf("seed type %s: %w", t.Code, err)
		}
		typeIDs[t.Code] = id
		if created {
			typesCreated++
		}
	}

	profiles := []struct {
		profile *catalog.Profile
		members []string
	}{
		{
			profile: &catalog.Profile{
				Name:        "Payroll package",
				Description: ns("Everything an employer client owes each month"),
			},
			members: []string{"APD", "EFKA_PAY", "FMY"},
		},
		{
			profile: &catalog.Profile{
				Name:        "Core bookkeeping",
				Description: ns("Baseline bundle for every bookkeeping client"),
			},
			members: []string{"MYDATA", "E3"},
		},
	}

	profilesCreated := 0
	for _, p := range profiles {
		id, created, err := ensureProfile(ctx, repo, p.profile)
		if err != nil {
			return fmt.Errorf("seed profile %s: %w", p.profile.Name, err)
		}
		if !created {
			// Leave an existing profile's membership alone; an operator may
			// have tuned it.
			continue
		}
		profilesCreated++
		memberIDs := make([]int64, 0, len(p.members))
		for _, code := range p.members {
			memberIDs = append(memberIDs, typeIDs[code])
		}
		if err := repo.SetProfileTypes(ctx, id, memberIDs); err != nil {
			return fmt.Errorf("seed profile %s members: %w", p.profile.Name, err)
		}
	}

	log.WithFields(logrus.Fields{
		"groups_created":   groupsCreated,
		"types_created":    typesCreated,
		"profiles_created": profilesCreated,
	}).Info("Catalog seed finished")
	fmt.Printf("Seeded catalog: %d group(s), %d type(s), %d profile(s) created; existing entries kept\n",
		groupsCreated, typesCreated, profilesCreated)
	return nil
}

func ensureGroup(ctx context.Context, repo catalog.Repository, g *catalog.Group) (int64, bool, error) {
	err := repo.CreateGroup(ctx, g)
	if err == nil {
		return g.ID, true, nil
	}
	if !errors.Is(err, idb.ErrDuplicateGroup) {
		return 0, false, err
	}
	groups, err := repo.ListGroups(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, existing := range groups {
		if existing.Name == g.Name {
			return existing.ID, false, nil
		}
	}
	return 0, false, fmt.Errorf("group %q reported duplicate but was not found", g.Name)
}

func ensureType(ctx context.Context, repo catalog.Repository, t *catalog.ObligationType) (int64, bool, error) {
	err := repo.CreateType(ctx, t)
	if err == nil {
		return t.ID, true, nil
	}
	if !errors.Is(err, idb.ErrDuplicateType) {
		return 0, false, err
	}
	existing, err := repo.GetTypeByCode(ctx, t.Code)
	if err != nil {
		return 0, false, err
	}
	return existing.ID, false, nil
}

func ensureProfile(ctx context.Context, repo catalog.Repository, p *catalog.Profile) (int64, bool, error) {
	err := repo.CreateProfile(ctx, p)
	if err == nil {
		return p.ID, true, nil
	}
	if !errors.Is(err, idb.ErrDuplicateProfile) {
		return 0, false, err
	}
	profiles, err := repo.ListProfiles(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, existing := range profiles {
		if existing.Name == p.Name {
			return existing.ID, false, nil
		}
	}
	return 0, false, fmt.Errorf("profile %q reported duplicate but was not found", p.Name)
}

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
