package parser

import (
	"fmt"
	"sync"

	"contribs/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var pythonLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
})

// PythonLanguage returns the shared tree-sitter Python grammar.
func PythonLanguage() *sitter.Language {
	return pythonLanguage()
}

// NewPythonPool returns a parser pool bound to the Python grammar.
func NewPythonPool() *Pool {
	return NewPool(PythonLanguage())
}

// Tree is a parsed source unit. Close must be called to release the
// underlying tree-sitter tree.
type Tree struct {
	tree   *sitter.Tree
	Source []byte
}

func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Parse parses source with a parser leased from pool. A tree that contains
// ERROR or MISSING nodes is rejected with CodeParse: partial trees are never
// handed to the resolver.
func (p *Pool) Parse(source []byte) (*Tree, error) {
	sp := p.Get()
	defer p.Put(sp)

	tree := sp.Parse(source, nil)
	p.parsed.Add(1)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "parser returned no tree")
	}

	root := tree.RootNode()
	if root.HasError() {
		defer tree.Close()
		return nil, syntaxError(root)
	}
	return &Tree{tree: tree, Source: source}, nil
}

func syntaxError(root *sitter.Node) error {
	node := firstErrorNode(root)
	if node == nil {
		node = root
	}
	pos := node.StartPosition()
	line, column := int(pos.Row)+1, int(pos.Column)+1

	msg := fmt.Sprintf("syntax error at line %d, column %d", line, column)
	if node.IsMissing() {
		msg = fmt.Sprintf("missing %q at line %d, column %d", node.Kind(), line, column)
	}
	de := &errors.DomainError{Code: errors.CodeParse, Message: msg}
	return de.WithContext(errors.CtxLine, line).WithContext(errors.CtxColumn, column)
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
