package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CopyFn writes rows aligned to columns and reports how many landed.
// Repository.CopyFrom satisfies it.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

var (
	errBatchSize = errors.New("storage: batch size must be positive")
	errNoCopyFn  = errors.New("storage: copy function is nil")
)

// batcher accumulates rows and hands full batches to copy.
type batcher struct {
	columns []string
	copy    CopyFn
	log     *zap.Logger
	pending [][]any
	written int64
	flushes int
	started time.Time
}

func (b *batcher) add(ctx context.Context, row []any) error {
	b.pending = append(b.pending, row)
	if len(b.pending) < cap(b.pending) {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	n, err := b.copy(ctx, b.columns, b.pending)
	b.written += n
	size := len(b.pending)
	b.pending = b.pending[:0]
	if err != nil {
		b.log.Error("storage: batch copy failed",
			zap.Int("rows", size), zap.Int64("written", b.written), zap.Error(err))
		return err
	}
	b.flushes++
	b.log.Debug("storage: batch copied",
		zap.Int("batch", b.flushes),
		zap.Int64("rows", n),
		zap.Int64("written", b.written),
		zap.Duration("elapsed", time.Since(b.started).Truncate(time.Millisecond)))
	return nil
}

// LoadBatches reads rows from in until it is closed and writes them through
// copyFn in groups of batchSize; the last group may be short. It returns the
// rows written so far together with the first copy error or ctx.Err().
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn, log *zap.Logger) (int64, error) {
	switch {
	case batchSize <= 0:
		return 0, errBatchSize
	case copyFn == nil:
		return 0, errNoCopyFn
	}
	if log == nil {
		log = zap.NewNop()
	}

	b := &batcher{
		columns: columns,
		copy:    copyFn,
		log:     log,
		pending: make([][]any, 0, batchSize),
		started: time.Now(),
	}
	for {
		select {
		case <-ctx.Done():
			return b.written, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return b.written, b.flush(ctx)
			}
			if err := b.add(ctx, row); err != nil {
				return b.written, err
			}
		}
	}
}
