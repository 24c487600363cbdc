package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"obligation_engine/internal/app"
	"obligation_engine/internal/domain/catalog"
	"obligation_engine/internal/domain/monthly"
	"obligation_engine/internal/domain/report"
	"obligation_engine/internal/infra/config"
	idb "obligation_engine/internal/infra/database"
	"obligation_engine/internal/infra/logger"
	"obligation_engine/internal/infra/mailer"
	"obligation_engine/internal/infra/metrics"
	"obligation_engine/internal/infra/scheduler"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const usageText = `Obligation scheduling and generation engine.

Usage: engine <command> [flags]

Commands:
  generate              Materialize monthly obligations for a target period
  reconcile-duplicates  Collapse duplicate obligation rows to one per period key
  sweep-overdue         Flag open obligations past their deadline
  status                Show obligations and status counts for a period
  assign                Assign obligation types/profiles to clients
  complete              Mark one obligation as completed
  reopen                Revert a completed obligation to an open state
  seed                  Insert the standard obligation catalog
  schedule              Run the cron daemon (generation + overdue sweep)

Run 'engine <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.Environment)
	log := logger.Get()

	// SIGINT/SIGTERM cancel the context: batch commands abort cleanly and
	// the schedule daemon shuts down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Debug("Database connection established")

	catalogRepo := idb.NewPostgresCatalogRepository(db)
	clientRepo := idb.NewPostgresClientRepository(db)
	monthlyRepo := idb.NewPostgresMonthlyRepository(db)

	generator := app.NewGenerationServiceImpl(catalogRepo, clientRepo, monthlyRepo, log)
	lifecycle := app.NewLifecycleService(monthlyRepo, log)
	assigner := app.NewAssignmentService(catalogRepo, clientRepo, log)
	reconciler := app.NewReconcileService(monthlyRepo, log)

	var sender report.Sender
	if cfg.SMTPAddr != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.ReportRecipients, log)
	}

	switch command {
	case "generate":
		runGenerate(ctx, args, generator, sender, log)
	case "reconcile-duplicates":
		runReconcile(ctx, args, reconciler, log)
	case "sweep-overdue":
		runSweep(ctx, args, lifecycle, log)
	case "status":
		runStatus(ctx, args, catalogRepo, monthlyRepo, log)
	case "assign":
		runAssign(ctx, args, assigner, catalogRepo, log)
	case "complete":
		runComplete(ctx, args, lifecycle, catalogRepo, monthlyRepo, log)
	case "reopen":
		runReopen(ctx, args, lifecycle, log)
	case "seed":
		runSeed(ctx, args, catalogRepo, log)
	case "schedule":
		runSchedule(ctx, cfg, generator, lifecycle, sender, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usageText)
		os.Exit(2)
	}
}

func runGenerate(ctx context.Context, args []string, generator app.GenerationService, sender report.Sender, log *logrus.Logger) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	yearFlag := fs.Int("year", 0, "target year (default: next calendar month)")
	monthFlag := fs.Int("month", 0, "target month 1..12 (default: next calendar month)")
	clientsFlag := fs.String("clients", "", "comma-separated client ids to restrict the run")
	typesFlag := fs.String("types", "", "comma-separated obligation type codes to restrict the run")
	dryRun := fs.Bool("dry-run", false, "compute and report without keeping any writes")
	force := fs.Bool("force", false, "recreate existing rows, discarding their completion state (destructive)")
	sendReport := fs.Bool("send-report", false, "email the run report to the configured recipients")
	fs.Parse(args)

	year, month, err := resolvePeriod(*yearFlag, *monthFlag)
	if err != nil {
		log.Fatalf("Invalid period: %v", err)
	}
	clientIDs, err := parseIDList(*clientsFlag)
	if err != nil {
		log.Fatalf("Invalid -clients value: %v", err)
	}

	opts := app.GenerateOptions{
		Year:      year,
		Month:     month,
		ClientIDs: clientIDs,
		TypeCodes: splitList(*typesFlag),
		DryRun:    *dryRun,
		Force:     *force,
	}

	summary, err := generator.Generate(ctx, opts)
	if summary != nil {
		fmt.Println(summary.Text())
	}
	if err != nil {
		log.Fatalf("Generation run failed: %v", err)
	}

	// Per-pair errors are already in the summary; they do not change the
	// exit status.
	if *sendReport {
		if sender == nil {
			log.Warn("SMTP_ADDR is not configured; run report not sent")
			return
		}
		if sendErr := sender.SendRunReport(ctx, summary); sendErr != nil {
			log.WithError(sendErr).Warn("Run report delivery failed; generation result unaffected")
		}
	}
}

func runReconcile(ctx context.Context, args []string, reconciler *app.ReconcileService, log *logrus.Logger) {
	fs := flag.NewFlagSet("reconcile-duplicates", flag.ExitOnError)
	fs.Parse(args)

	summary, err := reconciler.ReconcileDuplicates(ctx)
	if err != nil {
		log.Fatalf("Duplicate reconciliation failed: %v", err)
	}
	fmt.Println(summary.Text())
}

func runSweep(ctx context.Context, args []string, lifecycle *app.LifecycleService, log *logrus.Logger) {
	fs := flag.NewFlagSet("sweep-overdue", flag.ExitOnError)
	fs.Parse(args)

	flagged, err := lifecycle.SweepOverdue(ctx)
	if err != nil {
		log.Fatalf("Overdue sweep failed: %v", err)
	}
	fmt.Printf("Obligations flagged overdue: %d\n", flagged)
}

func runStatus(ctx context.Context, args []string, catalogRepo catalog.Repository, monthlyRepo monthly.Repository, log *logrus.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	now := time.Now()
	yearFlag := fs.Int("year", now.Year(), "period year")
	monthFlag := fs.Int("month", int(now.Month()), "period month 1..12")
	clientFlag := fs.Int64("client", 0, "show every obligation of one client instead of a period")
	fs.Parse(args)

	var (
		rows []*monthly.Obligation
		err  error
	)
	if *clientFlag != 0 {
		rows, err = monthlyRepo.ListByClient(ctx, *clientFlag)
	} else {
		rows, err = monthlyRepo.ListByPeriod(ctx, *yearFlag, time.Month(*monthFlag))
	}
	if err != nil {
		log.Fatalf("Could not list obligations: %v", err)
	}

	codes := map[int64]string{}
	types, err := catalogRepo.ListAllTypes(ctx)
	if err != nil {
		log.Fatalf("Could not load obligation type catalog: %v", err)
	}
	for _, ot := range types {
		codes[ot.ID] = ot.Code
	}

	counts := map[monthly.Status]int{}
	for _, o := range rows {
		counts[o.Status]++
	}
	fmt.Printf("Obligations: %d (pending %d, completed %d, overdue %d)\n\n",
		len(rows), counts[monthly.StatusPending], counts[monthly.StatusCompleted], counts[monthly.StatusOverdue])
	for _, o := range rows {
		fmt.Printf("  #%-6d client %-6d %-12s %04d-%02d deadline %s  %s\n",
			o.ID, o.ClientID, codes[o.TypeID], o.Year, int(o.Month), o.Deadline.Format("2006-01-02"), o.Status)
	}
}

func runAssign(ctx context.Context, args []string, assigner *app.AssignmentService, catalogRepo catalog.Repository, log *logrus.Logger) {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	clientsFlag := fs.String("clients", "", "comma-separated client ids (required)")
	typesFlag := fs.String("types", "", "comma-separated obligation type codes to assign")
	profilesFlag := fs.String("profiles", "", "comma-separated profile names to assign")
	setActive := fs.String("set-active", "", "toggle participation instead of assigning: true or false")
	fs.Parse(args)

	clientIDs, err := parseIDList(*clientsFlag)
	if err != nil {
		log.Fatalf("Invalid -clients value: %v", err)
	}
	if len(clientIDs) == 0 {
		log.Fatalf("-clients is required")
	}

	if *setActive != "" {
		active, parseErr := strconv.ParseBool(*setActive)
		if parseErr != nil {
			log.Fatalf("Invalid -set-active value %q: %v", *setActive, parseErr)
		}
		for _, clientID := range clientIDs {
			if _, err := assigner.SetActive(ctx, clientID, active); err != nil {
				log.Fatalf("Could not toggle client %d: %v", clientID, err)
			}
		}
		fmt.Printf("Participation set to %v for %d client(s)\n", active, len(clientIDs))
		return
	}

	typeIDs, err := resolveTypeCodes(ctx, catalogRepo, splitList(*typesFlag))
	if err != nil {
		log.Fatalf("Could not resolve obligation types: %v", err)
	}
	profileIDs, err := resolveProfileNames(ctx, catalogRepo, splitList(*profilesFlag))
	if err != nil {
		log.Fatalf("Could not resolve profiles: %v", err)
	}

	if err := assigner.BulkAssign(ctx, clientIDs, typeIDs, profileIDs); err != nil {
		log.Fatalf("Assignment rejected: %v", err)
	}
	fmt.Printf("Assigned %d type(s) and %d profile(s) to %d client(s)\n", len(typeIDs), len(profileIDs), len(clientIDs))
}

func runComplete(ctx context.Context, args []string, lifecycle *app.LifecycleService, catalogRepo catalog.Repository, monthlyRepo monthly.Repository, log *logrus.Logger) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	idFlag := fs.Int64("id", 0, "obligation id")
	clientFlag := fs.Int64("client", 0, "client id (alternative to -id, with -type/-year/-month)")
	typeFlag := fs.String("type", "", "obligation type code")
	yearFlag := fs.Int("year", 0, "period year")
	monthFlag := fs.Int("month", 0, "period month 1..12")
	onFlag := fs.String("on", "", "completion date YYYY-MM-DD (default: today)")
	byFlag := fs.String("by", "", "who completed it")
	notesFlag := fs.String("notes", "", "free-text notes")
	timeSpentFlag := fs.String("time-spent", "", "hours spent, decimal")
	rateFlag := fs.String("rate", "", "hourly rate, decimal")
	fs.Parse(args)

	obligationID := *idFlag
	if obligationID == 0 {
		if *clientFlag == 0 || *typeFlag == "" || *yearFlag == 0 || *monthFlag == 0 {
			log.Fatalf("Either -id or all of -client, -type, -year, -month are required")
		}
		ot, err := catalogRepo.GetTypeByCode(ctx, *typeFlag)
		if err != nil {
			log.Fatalf("Could not resolve obligation type %q: %v", *typeFlag, err)
		}
		o, err := monthlyRepo.GetByKey(ctx, monthly.Key{
			ClientID: *clientFlag,
			TypeID:   ot.ID,
			Year:     *yearFlag,
			Month:    time.Month(*monthFlag),
		})
		if err != nil {
			log.Fatalf("Could not find obligation for client %d, type %s, %04d-%02d: %v",
				*clientFlag, *typeFlag, *yearFlag, *monthFlag, err)
		}
		obligationID = o.ID
	}

	params := app.CompleteParams{
		ObligationID: obligationID,
		CompletedBy:  *byFlag,
		Notes:        *notesFlag,
	}
	if *onFlag != "" {
		on, err := time.Parse("2006-01-02", *onFlag)
		if err != nil {
			log.Fatalf("Invalid -on value %q: %v", *onFlag, err)
		}
		params.CompletedOn = on
	}
	var err error
	if params.TimeSpent, err = parseNullDecimal(*timeSpentFlag); err != nil {
		log.Fatalf("Invalid -time-spent value: %v", err)
	}
	if params.HourlyRate, err = parseNullDecimal(*rateFlag); err != nil {
		log.Fatalf("Invalid -rate value: %v", err)
	}

	o, err := lifecycle.Complete(ctx, params)
	if err != nil {
		log.Fatalf("Could not complete obligation %d: %v", obligationID, err)
	}
	fmt.Printf("Obligation #%d completed on %s\n", o.ID, o.CompletedDate.Time.Format("2006-01-02"))
	if cost, ok := o.Cost(); ok {
		fmt.Printf("Tracked cost: %s\n", cost.StringFixed(2))
	}
}

func runReopen(ctx context.Context, args []string, lifecycle *app.LifecycleService, log *logrus.Logger) {
	fs := flag.NewFlagSet("reopen", flag.ExitOnError)
	idFlag := fs.Int64("id", 0, "obligation id (required)")
	fs.Parse(args)

	if *idFlag == 0 {
		log.Fatalf("-id is required")
	}
	o, err := lifecycle.Reopen(ctx, *idFlag)
	if err != nil {
		log.Fatalf("Could not reopen obligation %d: %v", *idFlag, err)
	}
	fmt.Printf("Obligation #%d reopened, status now %s\n", o.ID, o.Status)
}

func runSeed(ctx context.Context, args []string, catalogRepo catalog.Repository, log *logrus.Logger) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fs.Parse(args)

	if err := seedCatalog(ctx, catalogRepo, log); err != nil {
		log.Fatalf("Catalog seed failed: %v", err)
	}
}

func runSchedule(ctx context.Context, cfg *config.AppConfig, generator app.GenerationService, lifecycle *app.LifecycleService, sender report.Sender, log *logrus.Logger) {
	engineScheduler := scheduler.NewEngineScheduler(
		generator,
		lifecycle,
		sender,
		log,
		cfg.CronSpecGeneration,
		cfg.CronSpecOverdueSweep,
	)
	engineScheduler.Start()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("Metrics endpoint listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Metrics listener failed")
			}
		}()
	}

	log.Info("Schedule daemon running; waiting for SIGINT/SIGTERM")
	<-ctx.Done()

	log.Info("Shutting down schedule daemon...")
	engineScheduler.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics listener shutdown reported an error")
		}
	}
	log.Info("Schedule daemon shut down gracefully")
}

// --- flag helpers ---

// resolvePeriod applies the default target: the next calendar month. A
// half-specified period is rejected rather than guessed at.
func resolvePeriod(year, month int) (int, time.Month, error) {
	if year == 0 && month == 0 {
		y, m := app.NextPeriod(time.Now())
		return y, m, nil
	}
	if year == 0 || month == 0 {
		return 0, 0, fmt.Errorf("-year and -month must be given together")
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range 1..12", month)
	}
	return year, time.Month(month), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%q is not a valid decimal: %w", s, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func resolveTypeCodes(ctx context.Context, catalogRepo catalog.Repository, codes []string) ([]int64, error) {
	ids := make([]int64, 0, len(codes))
	for _, code := range codes {
		ot, err := catalogRepo.GetTypeByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("type code %q: %w", code, err)
		}
		ids = append(ids, ot.ID)
	}
	return ids, nil
}

func resolveProfileNames(ctx context.Context, catalogRepo catalog.Repository, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	profiles, err := catalogRepo.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p.ID
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
