// Command bomreport computes material usage and cost reports from the order,
// BOM and price sheets and prints them, optionally exporting the costed
// usage to a SQL table.
//
// Usage:
//
//	bomreport -config configs/report.json -family WOOD -month "Jan 2024"
//	bomreport -config configs/report.json -lines -format table
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bomcost/internal/config"
	"bomcost/internal/filter"
	"bomcost/internal/logging"
	"bomcost/internal/metrics"
	"bomcost/internal/metrics/datadog"
	"bomcost/internal/metrics/prompush"
	"bomcost/internal/report"
	"bomcost/internal/source"
	"bomcost/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "bomcost/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	cfgPath  string
	families multiFlag
	lines    bool
	check    bool
	format   string
	export   bool
	validate bool
	verbose  bool

	months         multiFlag
	deliveryMonths multiFlag
	trips          multiFlag
	pis            multiFlag
	categories     multiFlag
	planDates      multiFlag
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("bomreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cfgPath, "config", "", "report config JSON path (defaults when empty)")
	fs.Var(&o.families, "family", "family prefix to report, repeatable (all configured families when omitted)")
	fs.BoolVar(&o.lines, "lines", false, "print the per-line BOM cost report instead of family reports")
	fs.BoolVar(&o.check, "check", false, "check the headers of every configured dataset and exit")
	fs.StringVar(&o.format, "format", "table", "output format: json, csv or table")
	fs.BoolVar(&o.export, "export", false, "export costed usage to the configured storage sink")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	fs.Var(&o.months, "month", `order month to include, e.g. "Jan 2024" (repeatable)`)
	fs.Var(&o.deliveryMonths, "delivery-month", "delivery month to include (repeatable)")
	fs.Var(&o.trips, "trip", "trip to include (repeatable)")
	fs.Var(&o.pis, "pi", "PI number to include (repeatable)")
	fs.Var(&o.categories, "category", "category to include (repeatable)")
	fs.Var(&o.planDates, "plan-date", "exact plan date YYYY-MM-DD (repeatable)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch o.format {
	case "json", "csv", "table":
	default:
		return options{}, fmt.Errorf("unknown -format %q (want json, csv or table)", o.format)
	}
	if (o.lines || o.check) && o.export {
		return options{}, errors.New("-export applies to family reports only")
	}
	if o.lines && o.check {
		return options{}, errors.New("-lines and -check are exclusive")
	}
	return o, nil
}

func (o options) predicates() (filter.Predicates, error) {
	p := filter.Predicates{
		OrderMonths:    o.months.selection(),
		DeliveryMonths: o.deliveryMonths.selection(),
		Trips:          o.trips.selection(),
		PINumbers:      o.pis.selection(),
		Categories:     o.categories.selection(),
	}
	for _, sel := range []filter.Selection{p.OrderMonths, p.DeliveryMonths} {
		for _, m := range sel {
			if _, err := time.Parse(filter.MonthLayout, m); err != nil {
				return filter.Predicates{}, fmt.Errorf("bad month %q (want e.g. %q)", m, filter.MonthLayout)
			}
		}
	}
	for _, d := range o.planDates.values {
		if _, err := time.Parse(filter.DateLayout, d); err != nil {
			return filter.Predicates{}, fmt.Errorf("bad plan date %q (want %s)", d, filter.DateLayout)
		}
		p.PlanDates = append(p.PlanDates, d)
	}
	return p, nil
}

func loadConfig(path string, stderr io.Writer) (config.App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.App{}, err
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.App{}, err
		}
	}
	if err := config.ApplyEnv(&cfg, nil); err != nil {
		return config.App{}, err
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.App{}, fmt.Errorf("configuration is invalid: %s", orDefault(path))
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o.cfgPath, stderr)
	if err != nil {
		return err
	}
	if o.validate {
		fmt.Fprintf(stderr, "configuration is valid: %s\n", orDefault(o.cfgPath))
		return nil
	}
	pred, err := o.predicates()
	if err != nil {
		return err
	}

	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	log := logging.Must(cfg.Logging)
	defer func() { _ = log.Sync() }()

	flush := setupMetrics(cfg.Metrics, log)
	defer flush()

	src, err := source.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	engine := report.New(src, cfg, log)
	start := time.Now()

	if o.check {
		checks, err := engine.CheckDatasets(ctx)
		if err != nil {
			return err
		}
		if err := writeChecks(stdout, o.format, checks); err != nil {
			return err
		}
		for _, c := range checks {
			if !c.OK() {
				return errors.New("dataset check failed")
			}
		}
		return nil
	}

	if o.lines {
		rep, err := engine.Lines(ctx, report.LinesRequest{Filter: pred, Families: o.families.values})
		if err != nil {
			return err
		}
		log.Debug("completed", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
		return writeLines(stdout, o.format, rep)
	}

	families := o.families.values
	if len(families) == 0 {
		for _, f := range engine.Families() {
			families = append(families, f.Prefix)
		}
	}

	// A failing family is reported and skipped; the others still print.
	var (
		reports []*report.FamilyReport
		errs    []error
	)
	for _, fam := range families {
		rep, err := engine.Family(ctx, report.FamilyRequest{Family: fam, Filter: pred})
		if err != nil {
			log.Error("family report failed", zap.String("family", fam), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)
	}

	if len(reports) > 0 {
		if err := writeFamilies(stdout, o.format, reports); err != nil {
			return err
		}
	}
	if o.export && len(reports) > 0 {
		if err := export(ctx, cfg.Storage, reports, log); err != nil {
			errs = append(errs, err)
		}
	}
	log.Debug("completed",
		zap.Int("families", len(reports)),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return errors.Join(errs...)
}

func export(ctx context.Context, cfg config.Storage, reports []*report.FamilyReport, log *zap.Logger) error {
	if cfg.Kind == "" {
		return errors.New("-export: storage.kind is not configured")
	}
	sink, err := storage.Open(ctx, cfg.Kind, cfg.DSN, cfg.Table, cfg.AutoCreateTable)
	if err != nil {
		return err
	}
	defer sink.Close()

	var total int64
	for _, rep := range reports {
		rows := storage.ExportRows(rep.Costed, rep.Family, rep.Snapshot, rep.GeneratedAt)
		n, err := storage.Export(ctx, sink.Repo, rows, storage.DefaultBatchSize, log)
		total += n
		if err != nil {
			return fmt.Errorf("export %s: %w", rep.Family, err)
		}
	}
	log.Info("exported", zap.String("kind", sink.Kind), zap.Int64("rows", total))
	return nil
}

// setupMetrics installs the configured backend and returns its flush hook.
// A backend that fails to start leaves metrics disabled.
func setupMetrics(cfg config.Metrics, log *zap.Logger) func() {
	var b metrics.Backend
	switch strings.ToLower(cfg.Backend) {
	case "pushgateway":
		pb, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(cfg.Datadog)
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		b = db
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unsupported backend for the CLI; metrics disabled", zap.String("backend", cfg.Backend))
		return func() {}
	}

	log.Debug("metrics: enabled", zap.String("backend", cfg.Backend), zap.String("job", cfg.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", zap.Error(err))
		}
	}
}

func orDefault(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
