// Package source reads named datasets (order sheets, BOM, price list) into
// cleaned record tables. Readers are read-only; nothing is ever written back.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bomcost/internal/datasource"
	"bomcost/internal/parser"
	"bomcost/internal/transformer"
	"bomcost/internal/transformer/builtin"
	"bomcost/pkg/records"
)

// ErrUnknownDataset is returned when a reader has no dataset by that name.
var ErrUnknownDataset = errors.New("source: unknown dataset")

// Reader fetches a dataset snapshot. maxStaleness bounds how old a cached
// snapshot may be; readers without a cache always fetch.
type Reader interface {
	Read(ctx context.Context, dataset string, maxStaleness time.Duration) (records.Table, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, dataset string, maxStaleness time.Duration) (records.Table, error)

func (f ReaderFunc) Read(ctx context.Context, dataset string, maxStaleness time.Duration) (records.Table, error) {
	return f(ctx, dataset, maxStaleness)
}

// BatchReader is a Reader that can fetch several datasets in one pass, such
// as a workbook holding every dataset as a sheet.
type BatchReader interface {
	Reader
	ReadMany(ctx context.Context, datasets []string, maxStaleness time.Duration) (map[string]records.Table, error)
}

// ReadAll fetches datasets and returns them keyed by name. A BatchReader
// gets them in a single call; any other reader is queried concurrently and
// the first error cancels the remaining fetches.
func ReadAll(ctx context.Context, r Reader, maxStaleness time.Duration, datasets ...string) (map[string]records.Table, error) {
	if b, ok := r.(BatchReader); ok {
		return b.ReadMany(ctx, datasets, maxStaleness)
	}
	return readEach(ctx, r, maxStaleness, datasets)
}

func readEach(ctx context.Context, r Reader, maxStaleness time.Duration, datasets []string) (map[string]records.Table, error) {
	tables := make([]records.Table, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range datasets {
		g.Go(func() error {
			t, err := r.Read(gctx, name, maxStaleness)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]records.Table, len(datasets))
	for i, name := range datasets {
		out[name] = tables[i]
	}
	return out, nil
}

// cleaning is applied to every snapshot after parsing.
var cleaning = transformer.Chain{builtin.Normalize{}}

// Prepare runs the snapshot cleaning step: cell normalization, then removal
// of empty rows and blank or "Unnamed" columns.
func Prepare(name string, t records.Table) records.Table {
	t.Name = name
	t.Rows = cleaning.Apply(t.Rows)
	return t.Clean()
}

// load opens src, parses it with p and prepares the result.
func load(ctx context.Context, log *zap.Logger, name string, src datasource.Source, p parser.Parser) (records.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return records.Table{}, err
	}
	defer rc.Close()
	return parse(log, name, rc, p)
}

func parse(log *zap.Logger, name string, r io.Reader, p parser.Parser) (records.Table, error) {
	t, skipped, err := p.Parse(r)
	if err != nil {
		return records.Table{}, fmt.Errorf("source: parse %q: %w", name, err)
	}
	if skipped > 0 {
		log.Warn("dataset rows skipped", zap.String("dataset", name), zap.Int("skipped", skipped))
	}
	return Prepare(name, t), nil
}

func known(datasets map[string]struct{}, name string) bool {
	if datasets == nil {
		return true
	}
	_, ok := datasets[name]
	return ok
}

func set(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
