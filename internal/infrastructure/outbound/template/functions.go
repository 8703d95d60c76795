package template

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// helpers are the functions shared by every engine, bound to one request.
type helpers struct {
	ctx RenderContext
}

func first(list []scenario.NamedParameter, name string, fold bool) string {
	for _, p := range list {
		same := p.Name == name
		if fold {
			same = strings.EqualFold(p.Name, name)
		}
		if same && p.Value != nil {
			return *p.Value
		}
	}
	return ""
}

func all(list []scenario.NamedParameter, name string, fold bool) []string {
	var out []string
	for _, p := range list {
		same := p.Name == name
		if fold {
			same = strings.EqualFold(p.Name, name)
		}
		if same && p.Value != nil {
			out = append(out, *p.Value)
		}
	}
	return out
}

func (h helpers) header(name string) string {
	return first(h.ctx.Headers, name, true)
}

func (h helpers) headers(name string) []string {
	return all(h.ctx.Headers, name, true)
}

func (h helpers) queryParam(name string) string {
	return first(h.ctx.Params, name, false)
}

func (h helpers) queryParams(name string) []string {
	return all(h.ctx.Params, name, false)
}

// segment returns the i-th path segment, or "" when out of range.
func (h helpers) segment(i int) string {
	segs := strings.Split(strings.TrimPrefix(h.ctx.Path, "/"), "/")
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

func (h helpers) body() string {
	return string(h.ctx.Body)
}

func (h helpers) now() string {
	return h.ctx.Now.UTC().Format(time.RFC3339)
}

func (h helpers) nowFormat(layout string) string {
	return h.ctx.Now.Format(layout)
}

func (h helpers) jsonPath(expression string) string {
	return extractJSONPath(h.ctx.Body, expression)
}

func randomInt(min, max int) int {
	if min >= max {
		return min
	}
	return min + rand.IntN(max-min+1)
}

func seqInts(start, end int) []int {
	if end < start {
		return nil
	}
	s := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		s = append(s, i)
	}
	return s
}

func newUUID() string {
	return uuid.NewString()
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func extractJSONPath(body []byte, expression string) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	result, err := jsonpath.Get(expression, data)
	if err != nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	return toJSONString(result)
}
