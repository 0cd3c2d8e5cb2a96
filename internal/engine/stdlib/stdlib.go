// Package stdlib holds the Standard Library Set: the top-level Python module
// names whose imports the resolver qualifies. A Set is immutable once built
// and is passed explicitly to every resolver.
package stdlib

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

//go:embed data/python.txt
var pythonStdlibData string

// DefaultDeny lists modules that ship with CPython but are never counted.
var DefaultDeny = []string{"antigravity", "this"}

// PrivatePrefix marks internal modules (e.g. _thread) that are excluded.
const PrivatePrefix = "_"

type Set struct {
	names map[string]struct{}
}

var defaultSet = sync.OnceValue(func() Set {
	return Embedded(DefaultDeny)
})

// Default returns the embedded CPython module list minus private modules and
// DefaultDeny.
func Default() Set {
	return defaultSet()
}

// Embedded builds a Set from the embedded module list with a caller-chosen
// deny list.
func Embedded(deny []string) Set {
	return New(parseLines(strings.NewReader(pythonStdlibData)), deny)
}

// New builds a Set from raw module names. Dotted entries contribute their
// root segment only; private and denied names are dropped.
func New(names []string, deny []string) Set {
	denied := make(map[string]bool, len(deny))
	for _, d := range deny {
		d = strings.TrimSpace(d)
		if d != "" {
			denied[d] = true
		}
	}

	s := Set{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if idx := strings.IndexByte(name, '.'); idx >= 0 {
			name = name[:idx]
		}
		if strings.HasPrefix(name, PrivatePrefix) || denied[name] {
			continue
		}
		s.names[name] = struct{}{}
	}
	return s
}

// Load reads a module list file (one name per line, '#' comments) and
// builds a Set from it.
func Load(path string, deny []string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("open stdlib list %q: %w", path, err)
	}
	defer f.Close()

	names := parseLines(f)
	if len(names) == 0 {
		return Set{}, fmt.Errorf("stdlib list %q is empty", path)
	}
	return New(names, deny), nil
}

func parseLines(r io.Reader) []string {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

func (s Set) Contains(module string) bool {
	_, ok := s.names[module]
	return ok
}

func (s Set) Len() int {
	return len(s.names)
}

// Names returns the members in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
