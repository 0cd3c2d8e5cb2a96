// # internal/engine/resolver/resolver.go
package resolver

import (
	"contribs/internal/core/errors"
	"contribs/internal/engine/parser"
	"contribs/internal/engine/stdlib"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Unit is one Python source file to analyse.
type Unit struct {
	Path   string
	Source []byte
	// ModulePath is the dotted module name of the unit, used to anchor
	// relative imports. Empty when unknown.
	ModulePath string
	// IsPackage marks a package __init__ module.
	IsPackage bool
}

// Stats counts what happened to a unit's imports and references.
type Stats struct {
	Imports             int
	Retained            int
	NonStdlib           int
	UnresolvedRelative  int
	References          int
	MalformedAttributes int
	Loci                int
}

type Analysis struct {
	Imports []ImportBinding
	Loci    []Locus
	Stats   Stats
}

// Resolver maps uses of imported standard-library names back to qualified
// identifiers. It holds no per-unit state and is safe for concurrent use.
type Resolver struct {
	stdlib stdlib.Set
	pool   *parser.Pool
}

// New returns a resolver for set. A nil pool gets a fresh Python pool.
func New(set stdlib.Set, pool *parser.Pool) *Resolver {
	if pool == nil {
		pool = parser.NewPythonPool()
	}
	return &Resolver{stdlib: set, pool: pool}
}

// Resolve returns the loci of unit in emission order: grouped by import in
// discovery order, then by reference order. The result is never nil on
// success.
func (r *Resolver) Resolve(unit Unit) ([]Locus, error) {
	a, err := r.Analyze(unit)
	if err != nil {
		return nil, err
	}
	return a.Loci, nil
}

// Analyze is Resolve plus the retained import bindings and counters.
func (r *Resolver) Analyze(unit Unit) (*Analysis, error) {
	tree, err := r.pool.Parse(unit.Source)
	if err != nil {
		if unit.Path != "" {
			err = errors.AddContext(err, errors.CtxPath, unit.Path)
		}
		return nil, err
	}
	defer tree.Close()

	return r.analyzeTree(tree.Root(), tree.Source, unit), nil
}

func (r *Resolver) analyzeTree(root *sitter.Node, src []byte, unit Unit) *Analysis {
	scopes := buildScopes(root, src)

	a := &Analysis{}
	a.Stats.References = len(scopes.refs)
	a.Imports = registerImports(scopes.imports, unit, r.stdlib, &a.Stats)

	out := newEmitter()
	for _, b := range a.Imports {
		scopes.resolveBinding(b, out, &a.Stats)
	}
	a.Loci = out.loci
	a.Stats.Loci = len(out.loci)
	return a
}

// ParserStats reports the counters of the resolver's parser pool.
func (r *Resolver) ParserStats() parser.PoolStats {
	return r.pool.Stats()
}
