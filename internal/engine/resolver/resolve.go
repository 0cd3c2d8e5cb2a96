package resolver

// lookup returns the frame whose bindings decide what name means at a use
// in frame start, or noFrame when the name is unbound everywhere.
func (s *scopeTree) lookup(name string, start int) int {
	fr := &s.frames[start]
	if fr.globals[name] {
		if _, ok := s.frames[0].bindings[name]; ok {
			return 0
		}
		return noFrame
	}

	f := start
	if fr.nonlocals[name] {
		f = s.parentScope(start)
	}
	for f != noFrame {
		if _, ok := s.frames[f].bindings[name]; ok {
			return f
		}
		f = s.parentScope(f)
	}
	return noFrame
}

// boundBy reports whether node is one of the bindings of name in frame f.
func (s *scopeTree) boundBy(f int, name string, node nodeRef) bool {
	for _, n := range s.frames[f].bindings[name] {
		if n == node {
			return true
		}
	}
	return false
}

// resolveBinding scans every reference for uses of b and emits one locus per
// match, in reference order.
func (s *scopeTree) resolveBinding(b ImportBinding, out *emitter, stats *Stats) {
	name := b.LocalName()
	node := b.bindingNode()
	for _, ref := range s.refs {
		if ref.name != name {
			continue
		}
		f := s.lookup(name, ref.frame)
		if f == noFrame || !s.boundBy(f, name, node) {
			continue
		}
		if ref.malformed {
			stats.MalformedAttributes++
			continue
		}
		out.emit(b.Qualify(ref.attr), ref.line)
	}
}
