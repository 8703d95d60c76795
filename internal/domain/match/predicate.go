package match

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// Predicate tests a request and, on failure, explains why.
type Predicate func(req *scenario.HTTPRequest) (ok bool, reason string)

// And returns a predicate that requires all predicates to match.
// The reason of the first failing predicate is reported.
func And(predicates ...Predicate) Predicate {
	return func(req *scenario.HTTPRequest) (bool, string) {
		for _, p := range predicates {
			if ok, reason := p(req); !ok {
				return false, reason
			}
		}
		return true, ""
	}
}

// Always returns a predicate that always matches.
func Always() Predicate {
	return func(*scenario.HTTPRequest) (bool, string) { return true, "" }
}

// FieldPredicate binds a request field name to its predicate.
type FieldPredicate struct {
	Field     string
	Predicate Predicate
}

// Compiler turns request templates into ordered field predicates.
// Compiled body patterns are cached and shared between calls.
type Compiler struct {
	patterns sync.Map // pattern string -> *regexp.Regexp (nil when invalid)
}

// NewCompiler creates a Compiler with an empty pattern cache.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile returns the predicates for every constrained field of t, in
// evaluation order. An unconstrained template compiles to no predicates.
func (c *Compiler) Compile(t *scenario.RequestTemplate) []FieldPredicate {
	var preds []FieldPredicate
	if t.Protocol != nil {
		preds = append(preds, FieldPredicate{"protocol", foldEqual(*t.Protocol, func(r *scenario.HTTPRequest) string { return r.Scheme })})
	}
	if t.Method != nil {
		preds = append(preds, FieldPredicate{"method", foldEqual(*t.Method, func(r *scenario.HTTPRequest) string { return r.Method })})
	}
	if t.Host != nil {
		preds = append(preds, FieldPredicate{"host", foldEqual(*t.Host, func(r *scenario.HTTPRequest) string { return r.Host })})
	}
	if t.Port != nil {
		preds = append(preds, FieldPredicate{"port", portEqual(*t.Port)})
	}
	if t.Path != nil {
		preds = append(preds, FieldPredicate{"path", pathEqual(*t.Path)})
	}
	if len(t.Headers) > 0 || t.ExactMatch {
		preds = append(preds, FieldPredicate{"headers", params("header", t.Headers, t.ExactMatch, strings.EqualFold,
			func(r *scenario.HTTPRequest) []scenario.NamedParameter { return r.Headers })})
	}
	if len(t.Params) > 0 || t.ExactMatch {
		preds = append(preds, FieldPredicate{"params", params("param", t.Params, t.ExactMatch, exactName,
			func(r *scenario.HTTPRequest) []scenario.NamedParameter { return r.Params })})
	}
	if t.Body != nil {
		preds = append(preds, FieldPredicate{"body", c.body(*t.Body)})
	}
	return preds
}

func foldEqual(want string, get func(*scenario.HTTPRequest) string) Predicate {
	return func(r *scenario.HTTPRequest) (bool, string) {
		if got := get(r); !strings.EqualFold(got, want) {
			return false, "expected " + want + ", got " + got
		}
		return true, ""
	}
}

func portEqual(want int) Predicate {
	return func(r *scenario.HTTPRequest) (bool, string) {
		if r.Port != want {
			return false, "expected " + strconv.Itoa(want) + ", got " + strconv.Itoa(r.Port)
		}
		return true, ""
	}
}

func pathEqual(want string) Predicate {
	return func(r *scenario.HTTPRequest) (bool, string) {
		if r.Path != want {
			return false, "expected " + want + ", got " + r.Path
		}
		return true, ""
	}
}

func exactName(a, b string) bool { return a == b }

// params checks that every templated name is present on the request with
// one of its values equal to the template's value (any value when nil).
// With exact set, the request may not carry names the template omits.
func params(kind string, want []scenario.NamedParameter, exact bool, sameName func(a, b string) bool,
	get func(*scenario.HTTPRequest) []scenario.NamedParameter) Predicate {
	return func(r *scenario.HTTPRequest) (bool, string) {
		got := get(r)
		for _, w := range want {
			if !containsParam(got, w, sameName) {
				if w.Value == nil {
					return false, "missing " + kind + " " + w.Name
				}
				return false, kind + " " + w.Name + " has no value " + *w.Value
			}
		}
		if !exact {
			return true, ""
		}
		for _, g := range got {
			if !containsName(want, g.Name, sameName) {
				return false, "unexpected " + kind + " " + g.Name
			}
		}
		return true, ""
	}
}

func containsParam(list []scenario.NamedParameter, w scenario.NamedParameter, sameName func(a, b string) bool) bool {
	for _, p := range list {
		if !sameName(p.Name, w.Name) {
			continue
		}
		if w.Value == nil || (p.Value != nil && *p.Value == *w.Value) {
			return true
		}
	}
	return false
}

func containsName(list []scenario.NamedParameter, name string, sameName func(a, b string) bool) bool {
	for _, p := range list {
		if sameName(p.Name, name) {
			return true
		}
	}
	return false
}

func (c *Compiler) body(pattern string) Predicate {
	re := c.regexp(pattern)
	return func(r *scenario.HTTPRequest) (bool, string) {
		if re == nil {
			return false, "invalid body pattern " + pattern
		}
		if r.Body == nil {
			return false, "request has no body"
		}
		if !re.MatchString(*r.Body) {
			return false, "body did not match " + pattern
		}
		return true, ""
	}
}

// regexp compiles pattern anchored at both ends, so it must match the whole body.
func (c *Compiler) regexp(pattern string) *regexp.Regexp {
	if v, ok := c.patterns.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		re = nil
	}
	v, _ := c.patterns.LoadOrStore(pattern, re)
	return v.(*regexp.Regexp)
}
