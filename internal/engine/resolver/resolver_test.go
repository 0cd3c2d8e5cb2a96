// # internal/engine/resolver/resolver_test.go
package resolver

import (
	"strings"
	"sync"
	"testing"

	"contribs/internal/core/errors"
	"contribs/internal/engine/parser"
	"contribs/internal/engine/stdlib"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool = parser.NewPythonPool()

func lines(l ...string) []byte {
	return []byte(strings.Join(l, "\n") + "\n")
}

func resolveUnit(t *testing.T, unit Unit) []Locus {
	t.Helper()
	loci, err := New(stdlib.Default(), testPool).Resolve(unit)
	require.NoError(t, err)
	return loci
}

func resolveSource(t *testing.T, source []byte) []Locus {
	t.Helper()
	return resolveUnit(t, Unit{Path: "test.py", Source: source})
}

func assertLoci(t *testing.T, want, got []Locus) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loci mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_BareModuleUse(t *testing.T) {
	got := resolveSource(t, lines(
		"import ast",
		"",
		"",
		"def f():",
		"    pass",
		`ast("x")`,
	))
	assertLoci(t, []Locus{{Ident: "ast", Line: 6}}, got)
}

func TestResolve_AttributeUse(t *testing.T) {
	got := resolveSource(t, lines(
		"import sys",
		"",
		"print(sys.stdlib_module_names)",
	))
	assertLoci(t, []Locus{{Ident: "sys.stdlib_module_names", Line: 3}}, got)
}

func TestResolve_AliasedDottedImport(t *testing.T) {
	got := resolveSource(t, lines(
		"import xml.etree.ElementTree as ET",
		"",
		"",
		`tree = ET.parse("a.xml")`,
	))
	assertLoci(t, []Locus{{Ident: "xml.etree.ElementTree.parse", Line: 4}}, got)
}

func TestResolve_UnaliasedDottedImport(t *testing.T) {
	got := resolveSource(t, lines(
		"import os.path",
		`os.path.join("a", "b")`,
		"os",
	))
	assertLoci(t, []Locus{
		{Ident: "os.path", Line: 2},
		{Ident: "os", Line: 3},
	}, got)
}

func TestResolve_FromImport(t *testing.T) {
	got := resolveSource(t, lines(
		"from collections import abc",
		"",
		"",
		"",
		"",
		"x = abc",
		"y = abc.Mapping",
	))
	assertLoci(t, []Locus{
		{Ident: "collections.abc", Line: 6},
		{Ident: "collections.abc", Line: 7},
	}, got)
}

func TestResolve_FromImportAliasUsesSymbol(t *testing.T) {
	got := resolveSource(t, lines(
		"import os, sys",
		"from os import path, sep as separator",
		"sys.argv",
		`path.join("a")`,
		"separator",
	))
	assertLoci(t, []Locus{
		{Ident: "sys.argv", Line: 3},
		{Ident: "os.path", Line: 4},
		{Ident: "os.sep", Line: 5},
	}, got)
}

func TestResolve_NonStdlibInvisible(t *testing.T) {
	got := resolveSource(t, lines(
		"import requests",
		"from requests import adapters",
		`requests.get("https://example.com")`,
		"requests",
		"adapters.HTTPAdapter()",
	))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolve_ShadowedInFunction(t *testing.T) {
	got := resolveSource(t, lines(
		"import os",
		"",
		"def f():",
		`    os = "x"`,
		"    return os.getcwd()",
		"",
		"os.getcwd()",
	))
	assertLoci(t, []Locus{{Ident: "os.getcwd", Line: 7}}, got)
}

func TestResolve_ParameterShadows(t *testing.T) {
	got := resolveSource(t, lines(
		"import json",
		"",
		"def dump(json, *args, **kwargs):",
		"    return json.dumps(args)",
		"",
		"def load(data, json: json.JSONDecoder = None):",
		"    return json",
	))
	assertLoci(t, []Locus{{Ident: "json.JSONDecoder", Line: 6}}, got)
}

func TestResolve_ClassBodyInvisibleToMethods(t *testing.T) {
	got := resolveSource(t, lines(
		"class C:",
		"    import json",
		"    def m(self):",
		"        return json.dumps({})",
		`    x = json.loads("1")`,
	))
	assertLoci(t, []Locus{{Ident: "json.loads", Line: 5}}, got)
}

func TestResolve_DefinitionContextInEnclosingScope(t *testing.T) {
	got := resolveSource(t, lines(
		"import functools",
		"import typing",
		"import enum",
		"@functools.lru_cache(maxsize=None)",
		"def f(x: typing.Any) -> typing.Optional[int]:",
		"    return x",
		"class Color(enum.Enum):",
		"    RED = 1",
	))
	assertLoci(t, []Locus{
		{Ident: "functools.lru_cache", Line: 4},
		{Ident: "typing.Any", Line: 5},
		{Ident: "typing.Optional", Line: 5},
		{Ident: "enum.Enum", Line: 7},
	}, got)
}

func TestResolve_Global(t *testing.T) {
	t.Run("import routed to module", func(t *testing.T) {
		got := resolveSource(t, lines(
			"def setup():",
			"    global np",
			"    import math as np",
			"",
			"def use():",
			"    return np.sqrt(2)",
		))
		assertLoci(t, []Locus{{Ident: "math.sqrt", Line: 6}}, got)
	})

	t.Run("lookup routed to module", func(t *testing.T) {
		got := resolveSource(t, lines(
			"import os",
			"",
			"def f():",
			"    global os",
			"    os = None",
			"    return os.name",
		))
		assertLoci(t, []Locus{{Ident: "os.name", Line: 6}}, got)
	})
}

func TestResolve_Nonlocal(t *testing.T) {
	got := resolveSource(t, lines(
		"import os",
		"",
		"def outer():",
		"    os = None",
		"    def inner():",
		"        nonlocal os",
		"        return os.sep",
		"    return inner",
		"",
		"os.sep",
	))
	assertLoci(t, []Locus{{Ident: "os.sep", Line: 10}}, got)
}

func TestResolve_Comprehensions(t *testing.T) {
	got := resolveSource(t, lines(
		"import string",
		"",
		"letters = [c for c in string.ascii_letters]",
		`shadow = [string for string in "ab"]`,
		"pairs = {k: string.digits for k in range(3)}",
	))
	assertLoci(t, []Locus{
		{Ident: "string.ascii_letters", Line: 3},
		{Ident: "string.digits", Line: 5},
	}, got)
}

func TestResolve_WalrusInComprehensionBindsOutside(t *testing.T) {
	got := resolveSource(t, lines(
		"import re",
		"",
		"def f():",
		"    [(re := 1) for _ in range(2)]",
		`    return re.compile("x")`,
		"",
		`re.escape("a")`,
	))
	assertLoci(t, []Locus{{Ident: "re.escape", Line: 7}}, got)
}

func TestResolve_Lambda(t *testing.T) {
	got := resolveSource(t, lines(
		"import time",
		"",
		"stamp = lambda time=time.time(): time",
		"def f(clock=time.monotonic):",
		"    return clock()",
	))
	assertLoci(t, []Locus{
		{Ident: "time.time", Line: 3},
		{Ident: "time.monotonic", Line: 4},
	}, got)
}

func TestResolve_TargetsAreNotReferences(t *testing.T) {
	got := resolveSource(t, lines(
		"import os",
		`os.environ["HOME"] = "/tmp"`,
		`os.sep = "/"`,
		"dict(os=1)",
		"print(sep=os.sep)",
	))
	assertLoci(t, []Locus{
		{Ident: "os.environ", Line: 2},
		{Ident: "os.sep", Line: 3},
		{Ident: "os.sep", Line: 5},
	}, got)
}

func TestResolve_MatchStatement(t *testing.T) {
	got := resolveSource(t, lines(
		"import http",
		"",
		"match status:",
		"    case http.HTTPStatus.OK:",
		"        pass",
		"    case other:",
		"        http",
	))
	assertLoci(t, []Locus{
		{Ident: "http.HTTPStatus", Line: 4},
		{Ident: "http", Line: 7},
	}, got)
}

func TestResolve_RelativeImports(t *testing.T) {
	source := lines(
		"from . import scanner",
		"from .encoder import JSONEncoder",
		"from .. import nothing",
		"scanner.make_scanner",
		"JSONEncoder",
		"nothing",
	)

	t.Run("anchored in module", func(t *testing.T) {
		a, err := New(stdlib.Default(), testPool).Analyze(Unit{
			Path:       "json/decoder.py",
			Source:     source,
			ModulePath: "json.decoder",
		})
		require.NoError(t, err)
		assertLoci(t, []Locus{
			{Ident: "json.scanner", Line: 4},
			{Ident: "json.encoder.JSONEncoder", Line: 5},
		}, a.Loci)
		assert.Equal(t, 1, a.Stats.UnresolvedRelative)
	})

	t.Run("no module path", func(t *testing.T) {
		a, err := New(stdlib.Default(), testPool).Analyze(Unit{Path: "decoder.py", Source: source})
		require.NoError(t, err)
		assert.Empty(t, a.Loci)
		assert.Equal(t, 3, a.Stats.UnresolvedRelative)
	})

	t.Run("package init", func(t *testing.T) {
		got := resolveUnit(t, Unit{
			Path:       "email/__init__.py",
			Source:     lines("from .utils import formatdate", "formatdate()"),
			ModulePath: "email",
			IsPackage:  true,
		})
		assertLoci(t, []Locus{{Ident: "email.utils.formatdate", Line: 2}}, got)
	})
}

func TestResolve_ReplayPerImport(t *testing.T) {
	got := resolveSource(t, lines(
		"import os",
		"import os.path",
		"os.getcwd()",
	))
	assertLoci(t, []Locus{
		{Ident: "os.getcwd", Line: 3},
		{Ident: "os.getcwd", Line: 3},
	}, got)
}

func TestResolve_OrderedByImportThenReference(t *testing.T) {
	got := resolveSource(t, lines(
		"import sys",
		"import os",
		"os.getcwd()",
		"sys.exit(0)",
		"os.sep",
	))
	want := []Locus{
		{Ident: "sys.exit", Line: 4},
		{Ident: "os.getcwd", Line: 3},
		{Ident: "os.sep", Line: 5},
	}
	assertLoci(t, want, got)

	assertLoci(t, []Locus{
		{Ident: "os.getcwd", Line: 3},
		{Ident: "sys.exit", Line: 4},
		{Ident: "os.sep", Line: 5},
	}, SortByLine(got))
	assertLoci(t, want, got)
}

func TestResolve_WildcardAndFuture(t *testing.T) {
	a, err := New(stdlib.Default(), testPool).Analyze(Unit{Source: lines(
		"from __future__ import annotations",
		"from os import *",
		"annotations",
		"getcwd()",
	)})
	require.NoError(t, err)
	assert.Empty(t, a.Loci)
	assert.Empty(t, a.Imports)
	assert.Equal(t, 1, a.Stats.Imports)
	assert.Equal(t, 1, a.Stats.NonStdlib)
}

func TestResolve_Empty(t *testing.T) {
	for _, source := range [][]byte{nil, []byte(""), lines("# only a comment"), lines("import os")} {
		got := resolveSource(t, source)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestResolve_ParseError(t *testing.T) {
	loci, err := New(stdlib.Default(), testPool).Resolve(Unit{
		Path:   "broken.py",
		Source: lines("import os", "os.getcwd("),
	})
	require.Error(t, err)
	assert.Nil(t, loci)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
	assert.Contains(t, err.Error(), "broken.py")
}

func TestAnalyze_ImportsAndStats(t *testing.T) {
	a, err := New(stdlib.Default(), testPool).Analyze(Unit{Source: lines(
		"import os.path as osp",
		"from json import loads as parse",
		"import requests",
		`osp.join(parse("[]"))`,
	)})
	require.NoError(t, err)

	want := []ImportBinding{
		DirectImport{Path: []string{"os", "path"}, Alias: "osp", Line: 1},
		FromImport{Module: []string{"json"}, Symbol: "loads", Alias: "parse", Line: 2},
	}
	if diff := cmp.Diff(want, a.Imports, cmpopts.IgnoreUnexported(DirectImport{}, FromImport{})); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "osp", a.Imports[0].LocalName())
	assert.Equal(t, "parse", a.Imports[1].LocalName())

	assert.Equal(t, Stats{
		Imports:    3,
		Retained:   2,
		NonStdlib:  1,
		References: 2,
		Loci:       2,
	}, a.Stats)
	assertLoci(t, []Locus{
		{Ident: "os.path.join", Line: 4},
		{Ident: "json.loads", Line: 4},
	}, a.Loci)
}

func TestResolve_CustomSet(t *testing.T) {
	set := stdlib.New([]string{"requests"}, nil)
	loci, err := New(set, nil).Resolve(Unit{Source: lines(
		"import requests",
		"import os",
		"requests.get",
		"os.sep",
	)})
	require.NoError(t, err)
	assertLoci(t, []Locus{{Ident: "requests.get", Line: 3}}, loci)
}

const mixedSource = `import os
import sys as system
from collections import OrderedDict, defaultdict as dd
import requests

class Cache:
    store = dd(list)

    def path(self, key):
        return os.path.join(os.sep, key)

def main(argv=system.argv):
    cache = OrderedDict()
    for arg in argv:
        cache[arg] = [os.getenv(a) for a in arg]
    requests.get("x")
    system.exit(0)
`

func TestResolve_Deterministic(t *testing.T) {
	first := resolveSource(t, []byte(mixedSource))
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		assertLoci(t, first, resolveSource(t, []byte(mixedSource)))
	}
}

func TestResolve_ConcurrentUnitsIndependent(t *testing.T) {
	other := lines("import os", "os = 1", "def f():", "    import json", "    return json")
	wantMixed := resolveSource(t, []byte(mixedSource))
	wantOther := resolveSource(t, other)

	r := New(stdlib.Default(), testPool)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source, want := []byte(mixedSource), wantMixed
			if i%2 == 1 {
				source, want = other, wantOther
			}
			got, err := r.Resolve(Unit{Source: source})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("unit %d mismatch (-want +got):\n%s", i, diff)
			}
		}(i)
	}
	wg.Wait()
}
