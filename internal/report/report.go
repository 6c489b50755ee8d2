// Package report runs the material costing reports over a source snapshot:
// per-family usage and cost, per-order-line costing, and the price list.
//
// Each call reads the datasets it needs (concurrently), then computes over
// the immutable snapshot on the calling goroutine. Identical snapshots and
// requests produce identical reports apart from ID and GeneratedAt.
package report

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"bomcost/internal/bom"
	"bomcost/internal/config"
	"bomcost/internal/costing"
	"bomcost/internal/filter"
	"bomcost/internal/logging"
	"bomcost/internal/metrics"
	"bomcost/internal/orders"
	"bomcost/internal/schema"
	"bomcost/internal/session"
	"bomcost/internal/source"
	"bomcost/internal/usage"
	"bomcost/pkg/records"
)

var (
	// ErrUnknownFamily is returned for a family prefix that is not configured.
	ErrUnknownFamily = errors.New("report: unknown family")
	// ErrSource wraps every failure to read a dataset.
	ErrSource = errors.New("report: source unavailable")
)

// Engine computes reports. It is safe for concurrent use.
type Engine struct {
	src source.Reader
	cfg config.App
	log *zap.Logger
	now func() time.Time
}

// New returns an Engine reading from src. cfg should have defaults applied.
func New(src source.Reader, cfg config.App, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{src: src, cfg: cfg, log: log, now: time.Now}
}

// FamilyInfo describes a configured family.
type FamilyInfo struct {
	Prefix  string `json:"prefix"`
	Dataset string `json:"dataset"`
}

// Families lists the configured families in config order.
func (e *Engine) Families() []FamilyInfo {
	out := make([]FamilyInfo, 0, len(e.cfg.Families))
	for _, f := range e.cfg.Families {
		out = append(out, FamilyInfo{Prefix: f.Prefix, Dataset: f.Dataset})
	}
	return out
}

// Meta identifies one computed report.
type Meta struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	// Snapshot fingerprints the datasets the report was computed from.
	Snapshot string `json:"snapshot"`
	// RequestedBy is the authenticated user, when there is one.
	RequestedBy string `json:"requested_by,omitempty"`
}

// Summary holds the headline figures of a family report.
type Summary struct {
	TotalPI        int     `json:"total_pi"`
	TotalQuantity  float64 `json:"total_quantity"`
	TotalMaterials int     `json:"total_materials"`
	TotalPrice     float64 `json:"total_price"`
	Currency       string  `json:"currency"`
}

// FamilyRequest selects a family and the orders to include.
type FamilyRequest struct {
	Family string            `json:"family"`
	Filter filter.Predicates `json:"filter"`
}

// FamilyReport is the result of Engine.Family.
type FamilyReport struct {
	Meta
	Family string              `json:"family"`
	Schema schema.FamilySchema `json:"schema"`
	// Orders are the filtered order rows.
	Orders []orders.OrderRecord `json:"orders"`
	// Costed is the priced usage table, most expensive first.
	Costed []costing.CostedUsage `json:"costed"`
	// Usage is every aggregate sorted by usage, for charting.
	Usage    []usage.Aggregate `json:"usage"`
	Summary  Summary           `json:"summary"`
	Unpriced []string          `json:"unpriced"`
	// Options are the filter values offered for the unfiltered sheet.
	Options filter.Options `json:"options"`
}

// Family computes the usage and cost report of one family.
func (e *Engine) Family(ctx context.Context, req FamilyRequest) (*FamilyReport, error) {
	fam, ok := e.cfg.Family(req.Family)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, req.Family)
	}
	job := e.cfg.Metrics.Job
	log := logging.FromContext(ctx, e.log).With(zap.String("family", fam.Prefix))

	var tables map[string]records.Table
	err := e.step(job, "fetch", func() (err error) {
		tables, err = source.ReadAll(ctx, e.src, e.cfg.Report.MaxStaleness.D(), fam.Dataset, e.cfg.Datasets.PriceList)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}
	sheet, prices := tables[fam.Dataset], tables[e.cfg.Datasets.PriceList]

	var fs schema.FamilySchema
	err = e.step(job, "schema", func() (err error) {
		fs, err = schema.Resolve(schema.FamilySchema{Prefix: fam.Prefix, Slots: fam.Slots}, sheet.Columns)
		return err
	})
	if err != nil {
		log.Warn("family schema rejected", zap.Error(err))
		return nil, fmt.Errorf("report: family %s: %w", fam.Prefix, err)
	}

	all := orders.Decode(sheet, e.cfg.Columns.Orders)
	metrics.RecordRows(job, "orders_read", len(all))

	var selected []orders.OrderRecord
	_ = e.step(job, "filter", func() error {
		selected = filter.Apply(all, req.Filter)
		return nil
	})
	metrics.RecordRows(job, "orders_selected", len(selected))

	var aggs []usage.Aggregate
	_ = e.step(job, "aggregate", func() error {
		occ := usage.Reshape(selected, fs)
		metrics.RecordRows(job, "occurrences", len(occ))
		aggs = usage.Sum(occ)
		return nil
	})

	var costed []costing.CostedUsage
	_ = e.step(job, "join", func() error {
		cat := costing.NewCatalog(costing.PricesFromTable(prices, e.cfg.Columns.Price))
		costed = costing.Join(aggs, cat)
		return nil
	})
	metrics.RecordRows(job, "materials", len(costed))

	sorted := append([]usage.Aggregate(nil), aggs...)
	usage.SortByUsage(sorted)
	unpriced := costing.Unpriced(costed)
	metrics.RecordUnpriced(job, fam.Prefix, len(unpriced))

	rep := &FamilyReport{
		Meta:     e.meta(ctx, sheet, prices),
		Family:   fam.Prefix,
		Schema:   fs,
		Orders:   selected,
		Costed:   costed,
		Usage:    sorted,
		Unpriced: unpriced,
		Options:  filter.Domains(all),
		Summary: Summary{
			TotalPI:        distinctPI(selected),
			TotalQuantity:  orders.TotalQuantity(selected),
			TotalMaterials: len(costed),
			TotalPrice:     round2(costing.TotalPrice(costed)),
			Currency:       e.cfg.Report.Currency,
		},
	}
	log.Info("family report",
		zap.String("report_id", rep.ID),
		zap.Int("orders", len(selected)),
		zap.Int("materials", len(costed)),
		zap.Int("unpriced", len(unpriced)),
	)
	return rep, nil
}

// OptionsFor returns the filter values of a family's unfiltered sheet.
func (e *Engine) OptionsFor(ctx context.Context, family string) (filter.Options, error) {
	fam, ok := e.cfg.Family(family)
	if !ok {
		return filter.Options{}, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	t, err := e.src.Read(ctx, fam.Dataset, e.cfg.Report.MaxStaleness.D())
	if err != nil {
		return filter.Options{}, fmt.Errorf("%w: %w", ErrSource, err)
	}
	return filter.Domains(orders.Decode(t, e.cfg.Columns.Orders)), nil
}

// LinesRequest selects the orders of a per-line report and, optionally, the
// families whose BOM slots are expanded. No families means all configured.
type LinesRequest struct {
	Filter   filter.Predicates `json:"filter"`
	Families []string          `json:"families"`
}

// LinesSummary holds the headline figures of a lines report.
type LinesSummary struct {
	TotalLines int     `json:"total_lines"`
	TotalPI    int     `json:"total_pi"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

// LinesReport is the result of Engine.Lines.
type LinesReport struct {
	Meta
	Lines           []costing.LineCost `json:"lines"`
	UnmatchedModels []string           `json:"unmatched_models"`
	Unpriced        []string           `json:"unpriced"`
	Summary         LinesSummary       `json:"summary"`
	Options         filter.Options     `json:"options"`
}

// Lines joins the order list to the BOM and prices every material line.
func (e *Engine) Lines(ctx context.Context, req LinesRequest) (*LinesReport, error) {
	job := e.cfg.Metrics.Job
	log := logging.FromContext(ctx, e.log)

	prefixes := make([]string, 0, len(e.cfg.Families))
	if len(req.Families) == 0 {
		for _, f := range e.cfg.Families {
			prefixes = append(prefixes, f.Prefix)
		}
	} else {
		for _, name := range req.Families {
			f, ok := e.cfg.Family(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
			}
			prefixes = append(prefixes, f.Prefix)
		}
	}

	ds := e.cfg.Datasets
	var tables map[string]records.Table
	err := e.step(job, "fetch", func() (err error) {
		tables, err = source.ReadAll(ctx, e.src, e.cfg.Report.MaxStaleness.D(), ds.OrderList, ds.BOM, ds.PriceList)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}
	orderList, bomTable, prices := tables[ds.OrderList], tables[ds.BOM], tables[ds.PriceList]

	idx := bom.NewIndex(bomTable, e.cfg.Columns.BOMModel)
	var schemas []schema.FamilySchema
	err = e.step(job, "schema", func() (err error) {
		schemas, err = idx.Schemas(prefixes)
		return err
	})
	if err != nil {
		log.Warn("bom schema rejected", zap.Error(err))
		return nil, fmt.Errorf("report: %w", err)
	}

	all := orders.Decode(orderList, e.cfg.Columns.Orders)
	metrics.RecordRows(job, "orders_read", len(all))
	selected := filter.Apply(all, req.Filter)
	metrics.RecordRows(job, "orders_selected", len(selected))

	var (
		exp   bom.Expansion
		lines []costing.LineCost
	)
	_ = e.step(job, "expand", func() error {
		exp = bom.Expand(selected, idx, schemas)
		return nil
	})
	_ = e.step(job, "join", func() error {
		cat := costing.NewCatalog(costing.PricesFromTable(prices, e.cfg.Columns.Price))
		lines = costing.CostLines(exp.Lines, cat)
		return nil
	})
	metrics.RecordRows(job, "lines", len(lines))

	rep := &LinesReport{
		Meta:            e.meta(ctx, orderList, bomTable, prices),
		Lines:           lines,
		UnmatchedModels: nonNil(exp.UnmatchedModels),
		Unpriced:        nonNil(costing.UnpricedMaterials(lines)),
		Options:         filter.Domains(all),
		Summary: LinesSummary{
			TotalLines: len(lines),
			TotalPI:    distinctPI(selected),
			TotalPrice: round2(costing.LinesTotal(lines)),
			Currency:   e.cfg.Report.Currency,
		},
	}
	if len(rep.UnmatchedModels) > 0 {
		log.Warn("orders without bom row", zap.Strings("models", rep.UnmatchedModels))
	}
	log.Info("lines report", zap.String("report_id", rep.ID), zap.Int("lines", len(lines)))
	return rep, nil
}

// PriceList returns the normalized, deduplicated price list.
func (e *Engine) PriceList(ctx context.Context) ([]costing.PriceEntry, error) {
	var entries []costing.PriceEntry
	err := e.step(e.cfg.Metrics.Job, "price_list", func() error {
		t, err := e.src.Read(ctx, e.cfg.Datasets.PriceList, e.cfg.Report.MaxStaleness.D())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSource, err)
		}
		entries = costing.NewCatalog(costing.PricesFromTable(t, e.cfg.Columns.Price)).Entries()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []costing.PriceEntry{}
	}
	return entries, nil
}

func (e *Engine) step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}

func (e *Engine) meta(ctx context.Context, tables ...records.Table) Meta {
	m := Meta{
		ID:          uuid.NewString(),
		GeneratedAt: e.now().UTC(),
		Snapshot:    Fingerprint(tables...),
	}
	if p, ok := session.FromContext(ctx); ok {
		m.RequestedBy = p.Username
	}
	return m
}

// Fingerprint combines the content hashes of tables, in order, into a hex
// string.
func Fingerprint(tables ...records.Table) string {
	h := xxh3.New()
	var buf [8]byte
	for _, t := range tables {
		_, _ = h.WriteString(t.Name)
		binary.BigEndian.PutUint64(buf[:], t.Fingerprint())
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func distinctPI(rows []orders.OrderRecord) int {
	seen := make(map[string]struct{}, len(rows))
	for _, o := range rows {
		if pi := strings.TrimSpace(o.PINumber); pi != "" {
			seen[pi] = struct{}{}
		}
	}
	return len(seen)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
