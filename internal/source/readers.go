package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"bomcost/internal/datasource/file"
	"bomcost/internal/datasource/httpds"
	pcsv "bomcost/internal/parser/csv"
	"bomcost/internal/parser/xlsx"
	"bomcost/pkg/records"
)

// Sheets reads tabs of a published Google spreadsheet as CSV.
type Sheets struct {
	client        *httpds.Client
	base          string
	spreadsheetID string
	datasets      map[string]struct{}
	csv           pcsv.Options
	log           *zap.Logger
}

// SheetsOptions configures NewSheets.
type SheetsOptions struct {
	// Base overrides the sheets host, mostly for tests.
	Base string
	// Datasets restricts the readable tab names. Empty allows any name.
	Datasets []string
	// CSV overrides the parser options. Logger is filled in when unset.
	CSV    pcsv.Options
	Logger *zap.Logger
}

// NewSheets returns a Sheets reader for spreadsheetID.
func NewSheets(c *httpds.Client, spreadsheetID string, opt SheetsOptions) *Sheets {
	return &Sheets{
		client:        c,
		base:          opt.Base,
		spreadsheetID: spreadsheetID,
		datasets:      set(opt.Datasets),
		csv:           csvOptions(opt.CSV, opt.Logger),
		log:           nopIfNil(opt.Logger),
	}
}

// Read fetches the tab named dataset. A 400 or 404 from the host means the
// tab does not exist and maps to ErrUnknownDataset.
func (s *Sheets) Read(ctx context.Context, dataset string, _ time.Duration) (records.Table, error) {
	if !known(s.datasets, dataset) {
		return records.Table{}, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	u := httpds.SheetCSVURL(s.base, s.spreadsheetID, dataset)
	t, err := load(ctx, s.log, dataset, httpds.NewSource(s.client, u, nil), pcsv.NewParser(s.csv))
	var se *httpds.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusBadRequest) {
		return records.Table{}, fmt.Errorf("%w: %q: %v", ErrUnknownDataset, dataset, err)
	}
	if err != nil {
		return records.Table{}, fmt.Errorf("source: read %q: %w", dataset, err)
	}
	return t, nil
}

// Dir reads "<root>/<dataset>.csv" files, falling back to the first sheet
// of "<root>/<dataset>.xlsx" when no CSV export exists.
type Dir struct {
	dir *file.Dir
	xl  *file.Dir
	csv pcsv.Options
	log *zap.Logger
}

// NewDir returns a Dir reader rooted at root.
func NewDir(root string, log *zap.Logger) *Dir {
	return &Dir{
		dir: file.NewDir(root, ".csv"),
		xl:  file.NewDir(root, ".xlsx"),
		csv: csvOptions(pcsv.Options{}, log),
		log: nopIfNil(log),
	}
}

// WithCSV replaces the parser options of d.
func (d *Dir) WithCSV(opt pcsv.Options) *Dir {
	d.csv = csvOptions(opt, d.log)
	return d
}

func (d *Dir) Read(ctx context.Context, dataset string, _ time.Duration) (records.Table, error) {
	src, err := d.dir.Source(dataset)
	if err != nil {
		return records.Table{}, fmt.Errorf("%w: %v", ErrUnknownDataset, err)
	}
	t, err := load(ctx, d.log, dataset, src, pcsv.NewParser(d.csv))
	if errors.Is(err, os.ErrNotExist) {
		xsrc, _ := d.xl.Source(dataset)
		t, err = load(ctx, d.log, dataset, xsrc, xlsx.NewParser(xlsx.Options{TrimSpace: true}))
	}
	if errors.Is(err, os.ErrNotExist) {
		return records.Table{}, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	if err != nil {
		return records.Table{}, fmt.Errorf("source: read %q: %w", dataset, err)
	}
	return t, nil
}

// Workbook reads one worksheet per dataset from an .xlsx file.
type Workbook struct {
	src *file.Local
	log *zap.Logger
}

// NewWorkbook returns a Workbook reader for the file at path.
func NewWorkbook(path string, log *zap.Logger) *Workbook {
	return &Workbook{src: file.NewLocal(path), log: nopIfNil(log)}
}

func (w *Workbook) Read(ctx context.Context, dataset string, maxStaleness time.Duration) (records.Table, error) {
	got, err := w.ReadMany(ctx, []string{dataset}, maxStaleness)
	if err != nil {
		return records.Table{}, err
	}
	return got[dataset], nil
}

// ReadMany opens the workbook once and decodes every requested sheet.
func (w *Workbook) ReadMany(ctx context.Context, datasets []string, _ time.Duration) (map[string]records.Table, error) {
	rc, err := w.src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", w.src.Path(), err)
	}
	defer rc.Close()

	w.log.Debug("reading workbook", zap.String("path", w.src.Path()), zap.Strings("sheets", datasets))
	sheets, err := xlsx.ParseSheets(rc, datasets, true)
	if errors.Is(err, xlsx.ErrNoSheet) {
		return nil, fmt.Errorf("%w: %w", ErrUnknownDataset, err)
	}
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", w.src.Path(), err)
	}
	out := make(map[string]records.Table, len(sheets))
	for name, t := range sheets {
		out[name] = Prepare(name, t)
	}
	return out, nil
}

// csvOptions always trims cells. A nil Logger inherits log.
func csvOptions(opt pcsv.Options, log *zap.Logger) pcsv.Options {
	opt.TrimSpace = true
	if opt.Logger == nil {
		opt.Logger = log
	}
	return opt
}
