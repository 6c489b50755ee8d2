// Package parser defines the contract shared by the sheet decoders.
package parser

import (
	"io"

	"bomcost/pkg/records"
)

// Parser decodes a single sheet into a Table. skipped counts rows dropped as
// malformed.
type Parser interface {
	Parse(r io.Reader) (t records.Table, skipped int, err error)
}
