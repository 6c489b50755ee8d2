package source

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"bomcost/internal/config"
	"bomcost/internal/datasource/httpds"
	pcsv "bomcost/internal/parser/csv"
)

// FromConfig builds the Reader described by a.Source. The sheets kind only
// accepts the dataset names a configures. A positive cache TTL wraps the
// reader in Cached.
func FromConfig(a config.App, log *zap.Logger) (Reader, error) {
	log = nopIfNil(log)
	s := a.Source
	csvOpt := CSVOptions(s.Options)

	var r Reader
	switch s.Kind {
	case "sheets":
		c := httpds.NewClient(httpds.Config{
			Timeout:            s.HTTP.Timeout.D(),
			MaxRetries:         s.HTTP.MaxRetries,
			InitialBackoff:     s.HTTP.InitialBackoff.D(),
			MaxBackoff:         s.HTTP.MaxBackoff.D(),
			InsecureSkipVerify: s.HTTP.InsecureSkipVerify,
			UserAgent:          "bomreport",
		})
		r = NewSheets(c, s.Sheets.SpreadsheetID, SheetsOptions{
			Base:     s.Sheets.Base,
			Datasets: DatasetNames(a),
			CSV:      csvOpt,
			Logger:   log,
		})
	case "dir":
		r = NewDir(s.Dir.Path, log).WithCSV(csvOpt)
	case "workbook":
		r = NewWorkbook(s.Workbook.Path, log)
	default:
		return nil, fmt.Errorf("source: unsupported source.kind=%s", s.Kind)
	}

	if ttl := s.Cache.TTL.D(); ttl > 0 {
		r = NewCached(r, s.Cache.Size, ttl)
	}
	log.Debug("source ready",
		zap.String("kind", s.Kind),
		zap.Int("cache_size", s.Cache.Size),
		zap.Duration("cache_ttl", s.Cache.TTL.D()))
	return r, nil
}

// CSVOptions maps source options onto parser options: "comma" (string),
// "strict" (bool) and "header_map" (object of old to new header).
func CSVOptions(o config.Options) pcsv.Options {
	opt := pcsv.Options{
		Comma:  o.Rune(config.OptComma, ','),
		Strict: o.Bool(config.OptStrict, false),
	}
	if hm := o.StringMap(config.OptHeaderMap); len(hm) > 0 {
		opt.HeaderMap = hm
	}
	return opt
}

// DatasetNames lists every dataset a configures, sorted and deduplicated.
func DatasetNames(a config.App) []string {
	names := map[string]struct{}{
		a.Datasets.OrderList: {},
		a.Datasets.BOM:       {},
		a.Datasets.PriceList: {},
	}
	for _, f := range a.Families {
		names[f.Dataset] = struct{}{}
	}
	delete(names, "")
	return slices.Sorted(maps.Keys(names))
}
