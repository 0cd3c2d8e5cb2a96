package resolver

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type frameKind uint8

const (
	frameModule frameKind = iota
	frameFunction
	frameClass
)

const noFrame = -1

// frame is one lexical scope. Frames live in scopeTree.frames and refer to
// their parent by index; the module frame is always index 0.
type frame struct {
	kind          frameKind
	comprehension bool
	parent        int
	bindings      map[string][]nodeRef
	globals       map[string]bool
	nonlocals     map[string]bool
}

// nameRef is one load-context use of an identifier.
type nameRef struct {
	name      string
	frame     int
	line      int
	attr      string
	malformed bool
}

// importSite is an import target as written, before stdlib filtering and
// relative anchoring.
type importSite struct {
	node   nodeRef
	line   int
	direct bool
	path   []string
	level  int
	symbol string
	alias  string
}

type scopeTree struct {
	frames  []frame
	refs    []nameRef
	imports []importSite
}

// buildScopes walks root once and returns the frame arena together with
// every name reference and import site in document order.
func buildScopes(root *sitter.Node, source []byte) *scopeTree {
	b := &scopeBuilder{src: source, tree: &scopeTree{}}
	module := b.newFrame(frameModule, noFrame, false)
	b.visitChildren(root, module)
	return b.tree
}

type scopeBuilder struct {
	src  []byte
	tree *scopeTree
}

func (b *scopeBuilder) text(n *sitter.Node) string {
	return string(b.src[n.StartByte():n.EndByte()])
}

func (b *scopeBuilder) newFrame(kind frameKind, parent int, comprehension bool) int {
	b.tree.frames = append(b.tree.frames, frame{
		kind:          kind,
		comprehension: comprehension,
		parent:        parent,
		bindings:      make(map[string][]nodeRef),
	})
	return len(b.tree.frames) - 1
}

// bind records node as a binding of name, honouring global and nonlocal
// declarations made in f.
func (b *scopeBuilder) bind(f int, name string, node *sitter.Node) {
	target := b.tree.bindingFrame(f, name)
	fr := &b.tree.frames[target]
	fr.bindings[name] = append(fr.bindings[name], refOf(node))
}

func (b *scopeBuilder) bindIdent(f int, node *sitter.Node) {
	b.bind(f, b.text(node), node)
}

func (b *scopeBuilder) visit(n *sitter.Node, f int) {
	switch classify(n.Kind()) {
	case kindIdentifier:
		b.reference(n, f)
	case kindAttribute:
		b.visitAttribute(n, f)
	case kindKeywordArgument:
		if value := n.ChildByFieldName("value"); value != nil {
			b.visit(value, f)
		}
	case kindImport:
		b.collectImport(n, f)
	case kindImportFrom, kindFutureImport:
		b.collectFromImport(n, f)
	case kindFunction:
		b.visitFunction(n, f)
	case kindLambda:
		b.visitLambda(n, f)
	case kindClass:
		b.visitClass(n, f)
	case kindComprehension:
		b.visitComprehension(n, f)
	case kindAssignment, kindFor:
		b.visitTargetOwner(n, n.ChildByFieldName("left"), f)
	case kindAsPattern:
		b.visitTargetOwner(n, n.ChildByFieldName("alias"), f)
	case kindExcept:
		b.visitExcept(n, f)
	case kindNamedExpression:
		b.visitNamedExpression(n, f)
	case kindDelete:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.bindTargets(n.NamedChild(i), f)
		}
	case kindGlobal:
		b.declare(n, f, true)
	case kindNonlocal:
		b.declare(n, f, false)
	case kindCasePattern, kindClassPattern, kindKeywordPattern:
		b.bindPattern(n, f)
	case kindDottedName, kindAliasedImport, kindRelativeImport, kindImportPrefix, kindWildcardImport:
		// Only meaningful inside import statements, which are handled whole.
	case kindForInClause, kindTargetGroup:
		b.visitChildren(n, f)
	default: // kindOther
		b.visitChildren(n, f)
	}
}

func (b *scopeBuilder) visitChildren(n *sitter.Node, f int) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		b.visit(n.NamedChild(i), f)
	}
}

func (b *scopeBuilder) reference(n *sitter.Node, f int) {
	b.tree.refs = append(b.tree.refs, nameRef{name: b.text(n), frame: f, line: lineOf(n)})
}

func (b *scopeBuilder) visitAttribute(n *sitter.Node, f int) {
	obj := n.ChildByFieldName("object")
	if obj == nil {
		return
	}
	if classify(obj.Kind()) != kindIdentifier {
		b.visit(obj, f)
		return
	}

	ref := nameRef{name: b.text(obj), frame: f, line: lineOf(obj)}
	attr := n.ChildByFieldName("attribute")
	if attr == nil || attr.IsMissing() || classify(attr.Kind()) != kindIdentifier {
		ref.malformed = true
	} else {
		ref.attr = b.text(attr)
	}
	b.tree.refs = append(b.tree.refs, ref)
}

// visitTargetOwner binds target in f and evaluates every other named child
// of n as an expression in f.
func (b *scopeBuilder) visitTargetOwner(n, target *sitter.Node, f int) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if sameNode(c, target) {
			b.bindTargets(c, f)
			continue
		}
		b.visit(c, f)
	}
}

// bindTargets binds every plain name inside a store target. Attribute and
// subscript targets are uses of their base object.
func (b *scopeBuilder) bindTargets(n *sitter.Node, f int) {
	switch classify(n.Kind()) {
	case kindIdentifier:
		b.bindIdent(f, n)
	case kindTargetGroup:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.bindTargets(n.NamedChild(i), f)
		}
	default:
		b.visit(n, f)
	}
}

func (b *scopeBuilder) visitFunction(n *sitter.Node, f int) {
	if name := n.ChildByFieldName("name"); name != nil {
		b.bindIdent(f, name)
	}
	inner := b.newFrame(frameFunction, f, false)
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.visitParameters(params, f, inner)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		b.visit(ret, f)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.visit(body, inner)
	}
}

func (b *scopeBuilder) visitLambda(n *sitter.Node, f int) {
	inner := b.newFrame(frameFunction, f, false)
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.visitParameters(params, f, inner)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.visit(body, inner)
	}
}

// visitParameters binds parameter names in inner; defaults and annotations
// are evaluated in outer.
func (b *scopeBuilder) visitParameters(params *sitter.Node, outer, inner int) {
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "identifier", "list_splat_pattern", "dictionary_splat_pattern", "tuple_pattern":
			b.bindTargets(p, inner)
		case "typed_parameter":
			typ := p.ChildByFieldName("type")
			for j := uint(0); j < p.NamedChildCount(); j++ {
				c := p.NamedChild(j)
				if sameNode(c, typ) {
					b.visit(c, outer)
				} else {
					b.bindTargets(c, inner)
				}
			}
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				b.bindTargets(name, inner)
			}
			if typ := p.ChildByFieldName("type"); typ != nil {
				b.visit(typ, outer)
			}
			if value := p.ChildByFieldName("value"); value != nil {
				b.visit(value, outer)
			}
		}
	}
}

func (b *scopeBuilder) visitClass(n *sitter.Node, f int) {
	if name := n.ChildByFieldName("name"); name != nil {
		b.bindIdent(f, name)
	}
	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		b.visit(bases, f)
	}
	inner := b.newFrame(frameClass, f, false)
	if body := n.ChildByFieldName("body"); body != nil {
		b.visit(body, inner)
	}
}

// visitComprehension opens a function frame for the comprehension. Only the
// first iterable is evaluated in the enclosing frame.
func (b *scopeBuilder) visitComprehension(n *sitter.Node, f int) {
	inner := b.newFrame(frameFunction, f, true)
	first := true
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if classify(c.Kind()) != kindForInClause {
			b.visit(c, inner)
			continue
		}
		left := c.ChildByFieldName("left")
		for j := uint(0); j < c.NamedChildCount(); j++ {
			cc := c.NamedChild(j)
			switch {
			case sameNode(cc, left):
				b.bindTargets(cc, inner)
			case first:
				b.visit(cc, f)
			default:
				b.visit(cc, inner)
			}
		}
		first = false
	}
}

func (b *scopeBuilder) visitExcept(n *sitter.Node, f int) {
	alias := n.ChildByFieldName("alias")
	afterAs := false
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if !c.IsNamed() {
			afterAs = c.Kind() == "as"
			continue
		}
		if afterAs || sameNode(c, alias) {
			b.bindTargets(c, f)
			afterAs = false
			continue
		}
		b.visit(c, f)
	}
}

// visitNamedExpression binds the walrus target in the nearest frame that is
// not a comprehension.
func (b *scopeBuilder) visitNamedExpression(n *sitter.Node, f int) {
	target := f
	for b.tree.frames[target].comprehension {
		target = b.tree.frames[target].parent
	}
	if name := n.ChildByFieldName("name"); name != nil {
		b.bindIdent(target, name)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		b.visit(value, f)
	}
}

func (b *scopeBuilder) declare(n *sitter.Node, f int, global bool) {
	fr := &b.tree.frames[f]
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if classify(c.Kind()) != kindIdentifier {
			continue
		}
		if global {
			if fr.globals == nil {
				fr.globals = make(map[string]bool)
			}
			fr.globals[b.text(c)] = true
		} else {
			if fr.nonlocals == nil {
				fr.nonlocals = make(map[string]bool)
			}
			fr.nonlocals[b.text(c)] = true
		}
	}
}

// bindPattern handles match-statement patterns. Bare names are captures;
// dotted names are value patterns and therefore uses.
func (b *scopeBuilder) bindPattern(n *sitter.Node, f int) {
	switch classify(n.Kind()) {
	case kindIdentifier:
		b.bindIdent(f, n)
	case kindDottedName:
		if n.NamedChildCount() == 1 {
			b.bindIdent(f, n.NamedChild(0))
			return
		}
		b.patternValue(n, f)
	case kindClassPattern:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if i == 0 && classify(c.Kind()) == kindDottedName {
				b.patternValue(c, f)
				continue
			}
			b.bindPattern(c, f)
		}
	case kindKeywordPattern:
		for i := uint(1); i < n.NamedChildCount(); i++ {
			b.bindPattern(n.NamedChild(i), f)
		}
	default:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.bindPattern(n.NamedChild(i), f)
		}
	}
}

// patternValue records a dotted value pattern (or class name) as a use of
// its first segment, with the second segment as the accessed attribute.
func (b *scopeBuilder) patternValue(n *sitter.Node, f int) {
	if n.NamedChildCount() == 0 {
		return
	}
	head := n.NamedChild(0)
	ref := nameRef{name: b.text(head), frame: f, line: lineOf(head)}
	if n.NamedChildCount() > 1 {
		ref.attr = b.text(n.NamedChild(1))
	}
	b.tree.refs = append(b.tree.refs, ref)
}

// bindingFrame returns the frame that receives a binding of name made in f.
func (s *scopeTree) bindingFrame(f int, name string) int {
	fr := &s.frames[f]
	switch {
	case fr.globals[name]:
		return 0
	case fr.nonlocals[name]:
		if owner := s.enclosingOwner(f, name); owner != noFrame {
			return owner
		}
	}
	return f
}

// enclosingOwner finds the nearest enclosing function frame that binds name.
func (s *scopeTree) enclosingOwner(f int, name string) int {
	for p := s.parentScope(f); p != noFrame && s.frames[p].kind != frameModule; p = s.parentScope(p) {
		if _, ok := s.frames[p].bindings[name]; ok {
			return p
		}
	}
	return noFrame
}

// parentScope is the parent of f with class frames skipped.
func (s *scopeTree) parentScope(f int) int {
	p := s.frames[f].parent
	for p != noFrame && s.frames[p].kind == frameClass {
		p = s.frames[p].parent
	}
	return p
}
