// Package transformer applies ordered, in-memory record transformations to a
// table snapshot after it is read from a source.
package transformer

import "bomcost/pkg/records"

// Transformer rewrites a slice of records. Implementations may mutate and
// return the input slice.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
