// Package datasource defines where sheet bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream for one dataset. Callers close the stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
