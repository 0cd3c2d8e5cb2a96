// # internal/engine/parser/pool.go
package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Pool lends out tree-sitter parsers bound to one grammar so that
// concurrent resolvers do not allocate a parser per file.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//
// Most callers use Parse instead, which leases and returns the parser
// itself.
type Pool struct {
	lang *sitter.Language
	pool sync.Pool

	leased  atomic.Int64
	created atomic.Int64
	parsed  atomic.Int64
}

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Leased  int64
	Created int64
	Parsed  int64
}

func NewPool(lang *sitter.Language) *Pool {
	p := &Pool{lang: lang}
	p.pool.New = func() any {
		p.created.Add(1)
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// Get leases a parser configured for the pool's grammar.
func (p *Pool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	// Reset() by a previous holder keeps the language, but a caller may
	// have switched it.
	_ = sp.SetLanguage(p.lang)
	p.leased.Add(1)
	return sp
}

// Put resets sp and returns it. sp must not be used afterwards.
func (p *Pool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Leased:  p.leased.Load(),
		Created: p.created.Load(),
		Parsed:  p.parsed.Load(),
	}
}
