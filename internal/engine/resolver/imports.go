package resolver

import (
	"slices"
	"strings"

	"contribs/internal/engine/stdlib"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportBinding is one name bound by an import statement. The set of
// implementations is closed: DirectImport and FromImport.
type ImportBinding interface {
	// LocalName is the name the import binds in its scope.
	LocalName() string
	// Qualify builds the identifier for a use of the local name. attr is the
	// accessed attribute, or "" for a bare use.
	Qualify(attr string) string

	bindingNode() nodeRef
}

// DirectImport models `import a.b.c [as alias]`.
type DirectImport struct {
	Path  []string
	Alias string
	Line  int

	node nodeRef
}

func (d DirectImport) LocalName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Path[0]
}

// Qualify uses the full dotted path only when aliased: an unaliased
// `import a.b` binds just `a`.
func (d DirectImport) Qualify(attr string) string {
	base := d.Path[0]
	if d.Alias != "" {
		base = strings.Join(d.Path, ".")
	}
	if attr == "" {
		return base
	}
	return base + "." + attr
}

func (d DirectImport) bindingNode() nodeRef { return d.node }

// FromImport models `from a.b import c [as alias]`. Module is absolute:
// relative imports are anchored before the binding is built, and Level
// keeps the number of leading dots as written.
type FromImport struct {
	Module []string
	Level  int
	Symbol string
	Alias  string
	Line   int

	node nodeRef
}

func (f FromImport) LocalName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Symbol
}

// Qualify never appends attr: from-imports are qualified one level deep.
func (f FromImport) Qualify(string) string {
	return strings.Join(f.Module, ".") + "." + f.Symbol
}

func (f FromImport) bindingNode() nodeRef { return f.node }

func (b *scopeBuilder) collectImport(n *sitter.Node, f int) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		site := importSite{node: refOf(c), line: lineOf(c), direct: true}
		switch classify(c.Kind()) {
		case kindDottedName:
			site.path = b.segments(c)
		case kindAliasedImport:
			name := c.ChildByFieldName("name")
			if name == nil {
				continue
			}
			site.path = b.segments(name)
			if alias := c.ChildByFieldName("alias"); alias != nil {
				site.alias = b.text(alias)
			}
		default:
			continue
		}
		if len(site.path) == 0 {
			continue
		}
		local := site.path[0]
		if site.alias != "" {
			local = site.alias
		}
		b.bind(f, local, c)
		b.tree.imports = append(b.tree.imports, site)
	}
}

func (b *scopeBuilder) collectFromImport(n *sitter.Node, f int) {
	var module []string
	level := 0
	moduleNode := n.ChildByFieldName("module_name")
	if classify(n.Kind()) == kindFutureImport {
		module = []string{"__future__"}
	} else if moduleNode != nil {
		module, level = b.moduleName(moduleNode)
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if sameNode(c, moduleNode) {
			continue
		}
		site := importSite{node: refOf(c), line: lineOf(c), path: module, level: level}
		switch classify(c.Kind()) {
		case kindDottedName:
			site.symbol = strings.Join(b.segments(c), ".")
		case kindAliasedImport:
			name := c.ChildByFieldName("name")
			if name == nil {
				continue
			}
			site.symbol = strings.Join(b.segments(name), ".")
			if alias := c.ChildByFieldName("alias"); alias != nil {
				site.alias = b.text(alias)
			}
		default:
			// wildcard_import binds nothing that can be tracked statically.
			continue
		}
		if site.symbol == "" {
			continue
		}
		local := site.symbol
		if site.alias != "" {
			local = site.alias
		}
		b.bind(f, local, c)
		b.tree.imports = append(b.tree.imports, site)
	}
}

// moduleName splits the module of a from-import into its segments and
// its relative level.
func (b *scopeBuilder) moduleName(n *sitter.Node) ([]string, int) {
	switch classify(n.Kind()) {
	case kindDottedName, kindIdentifier:
		return b.segments(n), 0
	case kindRelativeImport:
		var module []string
		level := 0
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch classify(c.Kind()) {
			case kindImportPrefix:
				level += strings.Count(b.text(c), ".")
			case kindDottedName:
				module = b.segments(c)
			}
		}
		return module, level
	}
	return nil, 0
}

func (b *scopeBuilder) segments(n *sitter.Node) []string {
	if classify(n.Kind()) == kindIdentifier {
		return []string{b.text(n)}
	}
	var parts []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if classify(c.Kind()) == kindIdentifier {
			parts = append(parts, b.text(c))
		}
	}
	return parts
}

// registerImports turns import sites into bindings, anchoring relative
// imports and dropping everything outside the standard library set.
func registerImports(sites []importSite, unit Unit, set stdlib.Set, stats *Stats) []ImportBinding {
	var out []ImportBinding
	for _, site := range sites {
		stats.Imports++
		if site.direct {
			if !set.Contains(site.path[0]) {
				stats.NonStdlib++
				continue
			}
			out = append(out, DirectImport{Path: site.path, Alias: site.alias, Line: site.line, node: site.node})
			continue
		}

		module := site.path
		if site.level > 0 {
			anchored, ok := anchorRelative(unit.ModulePath, unit.IsPackage, site.level, site.path)
			if !ok {
				stats.UnresolvedRelative++
				continue
			}
			module = anchored
		}
		if len(module) == 0 || !set.Contains(module[0]) {
			stats.NonStdlib++
			continue
		}
		out = append(out, FromImport{
			Module: module,
			Level:  site.level,
			Symbol: site.symbol,
			Alias:  site.alias,
			Line:   site.line,
			node:   site.node,
		})
	}
	stats.Retained = len(out)
	return out
}

// anchorRelative resolves `from <level dots><module> import ...` inside the
// module modulePath. A package __init__ is its own anchor; any other module
// is anchored at its parent package.
func anchorRelative(modulePath string, isPackage bool, level int, module []string) ([]string, bool) {
	if modulePath == "" || level < 1 {
		return nil, false
	}
	parts := strings.Split(modulePath, ".")
	if !isPackage {
		parts = parts[:len(parts)-1]
	}
	drop := level - 1
	if drop >= len(parts) {
		return nil, false
	}
	anchored := slices.Clone(parts[:len(parts)-drop])
	return append(anchored, module...), true
}
