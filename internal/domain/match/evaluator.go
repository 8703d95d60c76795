package match

import (
	"strconv"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
)

// EvalResult holds the outcome of evaluating a matcher list against a request.
type EvalResult struct {
	// Index of the matched entry, -1 when nothing matched.
	Index      int
	Matched    *scenario.Matcher
	Candidates []trace.CandidateResult
}

// Evaluator evaluates requests against ordered matcher lists.
type Evaluator struct {
	compiler *Compiler
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{compiler: NewCompiler()}
}

// Evaluate walks matchers in order and returns the first whose request
// template accepts req. Every entry is still evaluated so the trace shows
// why later entries would or would not have matched.
func (e *Evaluator) Evaluate(req *scenario.HTTPRequest, matchers []scenario.Matcher) EvalResult {
	result := EvalResult{
		Index:      -1,
		Candidates: make([]trace.CandidateResult, 0, len(matchers)),
	}

	for i := range matchers {
		m := &matchers[i]
		cr := trace.CandidateResult{Index: i, Matched: true}

		for _, fp := range e.compiler.Compile(&m.Request) {
			if ok, reason := fp.Predicate(req); !ok {
				cr.Matched = false
				cr.FailedField = fp.Field
				cr.FailedReason = reason
				break
			}
		}

		result.Candidates = append(result.Candidates, cr)

		if cr.Matched && result.Matched == nil {
			result.Index = i
			result.Matched = m
		}
	}

	return result
}

// Matches reports whether a single template accepts req.
func (e *Evaluator) Matches(t *scenario.RequestTemplate, req *scenario.HTTPRequest) bool {
	ok, _ := And(predicates(e.compiler.Compile(t))...)(req)
	return ok
}

func predicates(fps []FieldPredicate) []Predicate {
	out := make([]Predicate, len(fps))
	for i, fp := range fps {
		out[i] = fp.Predicate
	}
	return out
}

// Describe renders a candidate outcome for logs.
func Describe(cr trace.CandidateResult) string {
	if cr.Matched {
		return "#" + strconv.Itoa(cr.Index) + " matched"
	}
	return "#" + strconv.Itoa(cr.Index) + " failed on " + cr.FailedField + ": " + cr.FailedReason
}
