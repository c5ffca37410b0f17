// Package cql implements a small component query language for debug
// consoles and content-authoring tools: CONTAINS(a, b), EXACT(a), ALL(),
// negation with !, and composition with & and |. Query text compiles to a
// filter.ComponentFilter that the entity manager can evaluate.
package cql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/agrifun/agrifun/filter"
)

type queryOperator int

const (
	opAnd queryOperator = iota
	opOr
)

var operatorMap = map[string]queryOperator{"&": opAnd, "|": opOr}

// Capture tells the parser how to transform a parsed operator token into
// the operator type.
func (o *queryOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type queryComponent struct {
	Name string `parser:"@Ident"`
}

type queryAll struct{}

func (a *queryAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = queryAll{}
	}
	return nil
}

type queryNot struct {
	SubExpression *queryValue `parser:"\"!\" @@"`
}

type queryExact struct {
	Components []*queryComponent `parser:"\"EXACT\"\"(\" (@@\",\")* @@ \")\""`
}

type queryContains struct {
	Components []*queryComponent `parser:"\"CONTAINS\" \"(\" (@@\",\")* @@ \")\""`
}

type queryValue struct {
	All           *queryAll      `parser:"@(\"ALL\" \"(\" \")\")"`
	Exact         *queryExact    `parser:"| @@"`
	Contains      *queryContains `parser:"| @@"`
	Not           *queryNot      `parser:"| @@"`
	Subexpression *queryTerm     `parser:"| \"(\" @@ \")\""`
}

type queryFactor struct {
	Base *queryValue `parser:"@@"`
}

type queryOpFactor struct {
	Operator queryOperator `parser:"@(\"&\" | \"|\")"`
	Factor   *queryFactor  `parser:"@@"`
}

type queryTerm struct {
	Left  *queryFactor     `parser:"@@"`
	Right []*queryOpFactor `parser:"@@*"`
}

var queryParser = participle.MustBuild[queryTerm]()

// Resolver validates a component name from query text and returns its
// canonical registry key. Unknown names must return an error so typos fail
// at parse time rather than silently matching nothing.
type Resolver func(name string) (string, error)

// Parse compiles query text into a component filter.
func Parse(text string, resolve Resolver) (filter.ComponentFilter, error) {
	term, err := queryParser.ParseString("", text)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse query")
	}
	return termToFilter(term, resolve)
}

func termToFilter(t *queryTerm, resolve Resolver) (filter.ComponentFilter, error) {
	result, err := valueToFilter(t.Left.Base, resolve)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range t.Right {
		next, err := valueToFilter(opFactor.Factor.Base, resolve)
		if err != nil {
			return nil, err
		}
		switch opFactor.Operator {
		case opAnd:
			result = filter.And(result, next)
		case opOr:
			result = filter.Or(result, next)
		default:
			return nil, eris.New("invalid operator")
		}
	}
	return result, nil
}

func valueToFilter(v *queryValue, resolve Resolver) (filter.ComponentFilter, error) {
	switch {
	case v.Not != nil:
		sub, err := valueToFilter(v.Not.SubExpression, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Not(sub), nil
	case v.Exact != nil:
		names, err := resolveNames(v.Exact.Components, resolve)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, eris.New("EXACT cannot have zero parameters")
		}
		return filter.Exact(names...), nil
	case v.Contains != nil:
		names, err := resolveNames(v.Contains.Components, resolve)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, eris.New("CONTAINS cannot have zero parameters")
		}
		return filter.Contains(names...), nil
	case v.All != nil:
		return filter.All(), nil
	case v.Subexpression != nil:
		return termToFilter(v.Subexpression, resolve)
	default:
		return nil, eris.New("unrecognized query value")
	}
}

func resolveNames(components []*queryComponent, resolve Resolver) ([]string, error) {
	names := make([]string, 0, len(components))
	for _, comp := range components {
		name, err := resolve(comp.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "unknown component %q", comp.Name)
		}
		names = append(names, name)
	}
	return names, nil
}
