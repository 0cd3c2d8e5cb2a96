package resolver

import (
	"cmp"
	"slices"
)

// Locus is one use of a standard-library symbol.
type Locus struct {
	Ident string `json:"ident" yaml:"ident"`
	Line  int    `json:"line" yaml:"line"`
}

type emitter struct {
	loci []Locus
}

func newEmitter() *emitter {
	return &emitter{loci: []Locus{}}
}

func (e *emitter) emit(ident string, line int) {
	e.loci = append(e.loci, Locus{Ident: ident, Line: line})
}

// SortByLine returns a copy of loci ordered by line. Loci on the same line
// keep their relative order.
func SortByLine(loci []Locus) []Locus {
	out := slices.Clone(loci)
	slices.SortStableFunc(out, func(a, b Locus) int {
		return cmp.Compare(a.Line, b.Line)
	})
	return out
}
