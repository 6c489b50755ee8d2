package source

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"bomcost/pkg/records"
)

// fetchTimeout bounds a shared fetch. The fetch outlives the caller that
// started it, so it cannot borrow that caller's deadline.
const fetchTimeout = 2 * time.Minute

type snapshot struct {
	table records.Table
	at    time.Time
}

// Cached memoizes another Reader. Entries expire after ttl regardless of
// callers; each Read additionally refetches entries older than its own
// maxStaleness. Concurrent misses for one dataset share a single fetch, and
// a caller giving up does not cancel it for the others.
//
// Cached tables are shared between callers and must be treated as read-only.
type Cached struct {
	next    Reader
	lru     *expirable.LRU[string, snapshot]
	group   singleflight.Group
	now     func() time.Time
	timeout time.Duration
}

// NewCached wraps next. size <= 0 defaults to 32 entries; ttl <= 0 disables
// time-based eviction.
func NewCached(next Reader, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 32
	}
	return &Cached{
		next:    next,
		lru:     expirable.NewLRU[string, snapshot](size, nil, ttl),
		now:     time.Now,
		timeout: fetchTimeout,
	}
}

func (c *Cached) fresh(dataset string, maxStaleness time.Duration) (records.Table, bool) {
	s, ok := c.lru.Get(dataset)
	if !ok || maxStaleness <= 0 || c.now().Sub(s.at) > maxStaleness {
		return records.Table{}, false
	}
	return s.table, true
}

// shared runs fetch once per key across concurrent callers. fetch gets a
// context detached from ctx but bounded by c.timeout; ctx only decides how
// long this caller waits.
func (c *Cached) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(detached, c.timeout)
		defer cancel()
		return fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Read returns a cached snapshot no older than maxStaleness, fetching from
// the wrapped reader otherwise. maxStaleness <= 0 always fetches.
func (c *Cached) Read(ctx context.Context, dataset string, maxStaleness time.Duration) (records.Table, error) {
	if t, ok := c.fresh(dataset, maxStaleness); ok {
		return t, nil
	}
	v, err := c.shared(ctx, dataset, func(fctx context.Context) (any, error) {
		t, err := c.next.Read(fctx, dataset, maxStaleness)
		if err != nil {
			return records.Table{}, err
		}
		c.lru.Add(dataset, snapshot{table: t, at: c.now()})
		return t, nil
	})
	if err != nil {
		return records.Table{}, err
	}
	return v.(records.Table), nil
}

// ReadMany serves fresh entries from the cache and fetches the rest. When
// the wrapped reader is a BatchReader the misses go out as one batch.
func (c *Cached) ReadMany(ctx context.Context, datasets []string, maxStaleness time.Duration) (map[string]records.Table, error) {
	out := make(map[string]records.Table, len(datasets))
	var misses []string
	for _, name := range datasets {
		if t, ok := c.fresh(name, maxStaleness); ok {
			out[name] = t
			continue
		}
		misses = append(misses, name)
	}
	if len(misses) == 0 {
		return out, nil
	}

	b, ok := c.next.(BatchReader)
	if !ok {
		got, err := readEach(ctx, c, maxStaleness, misses)
		if err != nil {
			return nil, err
		}
		for k, t := range got {
			out[k] = t
		}
		return out, nil
	}

	// Batches are keyed apart from single datasets, which cannot hold NUL.
	key := "\x00" + strings.Join(misses, "\x00")
	v, err := c.shared(ctx, key, func(fctx context.Context) (any, error) {
		got, err := b.ReadMany(fctx, misses, maxStaleness)
		if err != nil {
			return nil, err
		}
		at := c.now()
		for name, t := range got {
			c.lru.Add(name, snapshot{table: t, at: at})
		}
		return got, nil
	})
	if err != nil {
		return nil, err
	}
	for k, t := range v.(map[string]records.Table) {
		out[k] = t
	}
	return out, nil
}

// Invalidate drops dataset from the cache, or every entry when dataset is "".
func (c *Cached) Invalidate(dataset string) {
	if dataset == "" {
		c.lru.Purge()
		return
	}
	c.lru.Remove(dataset)
}
