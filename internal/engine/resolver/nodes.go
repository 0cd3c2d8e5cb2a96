package resolver

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeKind is the closed set of tree-sitter-python node kinds the scope
// builder treats specially. Everything else is kindOther and is walked by
// plain recursive descent.
type nodeKind uint8

const (
	kindOther nodeKind = iota
	kindIdentifier
	kindAttribute
	kindKeywordArgument
	kindImport
	kindImportFrom
	kindFutureImport
	kindDottedName
	kindAliasedImport
	kindRelativeImport
	kindImportPrefix
	kindWildcardImport
	kindFunction
	kindLambda
	kindClass
	kindComprehension
	kindForInClause
	kindAssignment
	kindFor
	kindAsPattern
	kindExcept
	kindNamedExpression
	kindDelete
	kindGlobal
	kindNonlocal
	kindTargetGroup
	kindCasePattern
	kindClassPattern
	kindKeywordPattern
)

func classify(kind string) nodeKind {
	switch kind {
	case "identifier":
		return kindIdentifier
	case "attribute":
		return kindAttribute
	case "keyword_argument":
		return kindKeywordArgument
	case "import_statement":
		return kindImport
	case "import_from_statement":
		return kindImportFrom
	case "future_import_statement":
		return kindFutureImport
	case "dotted_name":
		return kindDottedName
	case "aliased_import":
		return kindAliasedImport
	case "relative_import":
		return kindRelativeImport
	case "import_prefix":
		return kindImportPrefix
	case "wildcard_import":
		return kindWildcardImport
	case "function_definition":
		return kindFunction
	case "lambda":
		return kindLambda
	case "class_definition":
		return kindClass
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return kindComprehension
	case "for_in_clause":
		return kindForInClause
	case "assignment", "augmented_assignment":
		return kindAssignment
	case "for_statement":
		return kindFor
	case "as_pattern":
		return kindAsPattern
	case "except_clause", "except_group_clause":
		return kindExcept
	case "named_expression":
		return kindNamedExpression
	case "delete_statement":
		return kindDelete
	case "global_statement":
		return kindGlobal
	case "nonlocal_statement":
		return kindNonlocal
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"expression_list", "parenthesized_expression", "list_splat_pattern",
		"list_splat", "dictionary_splat_pattern", "as_pattern_target",
		"parenthesized_list_splat":
		return kindTargetGroup
	case "case_pattern":
		return kindCasePattern
	case "class_pattern":
		return kindClassPattern
	case "keyword_pattern":
		return kindKeywordPattern
	default:
		return kindOther
	}
}

// nodeRef identifies a syntax node independently of the *sitter.Node value
// used to reach it.
type nodeRef struct {
	start uint
	end   uint
	kind  string
}

func refOf(n *sitter.Node) nodeRef {
	return nodeRef{start: n.StartByte(), end: n.EndByte(), kind: n.Kind()}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return refOf(a) == refOf(b)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}
