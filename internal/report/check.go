package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bomcost/internal/bom"
	"bomcost/internal/logging"
	"bomcost/internal/schema"
	"bomcost/pkg/records"
)

// DatasetCheck is the header check of one configured dataset.
type DatasetCheck struct {
	Dataset string `json:"dataset"`
	// Family is set for family order sheets.
	Family  string `json:"family,omitempty"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
	// Schemas are the slot layouts found; one for a family sheet, one per
	// family present on the BOM.
	Schemas []schema.FamilySchema `json:"schemas,omitempty"`
	Missing []string              `json:"missing,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// OK reports whether the dataset can be used by the reports.
func (c DatasetCheck) OK() bool { return c.Error == "" && len(c.Missing) == 0 }

type checkSpec struct {
	dataset  string
	family   string
	required []string
	// resolve returns the slot layouts of the header, or a schema error.
	resolve func(t records.Table) ([]schema.FamilySchema, error)
}

// CheckDatasets reads every configured dataset and checks its header: the
// family slot layout of each order sheet, the BOM slots and model column,
// and the columns of the order and price lists. A failing dataset is
// reported in its DatasetCheck; the error return is reserved for ctx.
func (e *Engine) CheckDatasets(ctx context.Context) ([]DatasetCheck, error) {
	log := logging.FromContext(ctx, e.log)
	cols := e.cfg.Columns
	prefixes := make([]string, 0, len(e.cfg.Families))

	var specs []checkSpec
	for _, f := range e.cfg.Families {
		prefixes = append(prefixes, f.Prefix)
		specs = append(specs, checkSpec{
			dataset:  f.Dataset,
			family:   f.Prefix,
			required: []string{cols.Orders.PINumber, cols.Orders.Quantity},
			resolve: func(t records.Table) ([]schema.FamilySchema, error) {
				fs, err := schema.Resolve(schema.FamilySchema{Prefix: f.Prefix, Slots: f.Slots}, t.Columns)
				if err != nil {
					return nil, err
				}
				return []schema.FamilySchema{fs}, nil
			},
		})
	}
	ds := e.cfg.Datasets
	specs = append(specs,
		checkSpec{
			dataset:  ds.OrderList,
			required: []string{cols.Orders.PINumber, cols.Orders.Quantity, cols.Orders.Model},
		},
		checkSpec{
			dataset:  ds.BOM,
			required: []string{cols.BOMModel},
			resolve: func(t records.Table) ([]schema.FamilySchema, error) {
				return bom.NewIndex(t, cols.BOMModel).Schemas(prefixes)
			},
		},
		checkSpec{
			dataset:  ds.PriceList,
			required: []string{cols.Price.Description, cols.Price.UnitPrice},
		},
	)

	out := make([]DatasetCheck, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range specs {
		g.Go(func() error {
			out[i] = e.check(gctx, sp)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, c := range out {
		if !c.OK() {
			failed++
			log.Warn("dataset check failed", zap.String("dataset", c.Dataset), zap.String("error", c.Error), zap.Strings("missing", c.Missing))
		}
	}
	log.Info("datasets checked", zap.Int("datasets", len(out)), zap.Int("failed", failed))
	return out, nil
}

func (e *Engine) check(ctx context.Context, sp checkSpec) DatasetCheck {
	c := DatasetCheck{Dataset: sp.dataset, Family: sp.family}
	t, err := e.src.Read(ctx, sp.dataset, e.cfg.Report.MaxStaleness.D())
	if err != nil {
		c.Error = fmt.Errorf("%w: %w", ErrSource, err).Error()
		return c
	}
	c.Columns, c.Rows = len(t.Columns), t.Len()
	for _, col := range sp.required {
		if !t.HasColumn(col) {
			c.Missing = append(c.Missing, col)
		}
	}
	if sp.resolve == nil {
		return c
	}
	fs, err := sp.resolve(t)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	c.Schemas = fs
	return c
}
