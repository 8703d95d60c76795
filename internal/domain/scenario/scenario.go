package scenario

import (
	"net/url"
	"strconv"
	"strings"
)

// Default values applied to a ResponseDescriptor when a scenario omits them.
const (
	DefaultCode      = 200
	DefaultMediaType = "text/plain"
)

// NamedParameter is a header or query parameter. Names may repeat.
// A nil Value in a template means "any value".
type NamedParameter struct {
	Name  string
	Value *string
}

// Param builds a NamedParameter with a value.
func Param(name, value string) NamedParameter {
	return NamedParameter{Name: name, Value: &value}
}

// NameOnly builds a NamedParameter without a value.
func NameOnly(name string) NamedParameter {
	return NamedParameter{Name: name}
}

// Equal reports whether both parameters have the same name and value.
func (p NamedParameter) Equal(o NamedParameter) bool {
	if p.Name != o.Name {
		return false
	}
	if p.Value == nil || o.Value == nil {
		return p.Value == nil && o.Value == nil
	}
	return *p.Value == *o.Value
}

// RequestTemplate is the pattern an incoming request is matched against.
// Nil fields are unconstrained.
type RequestTemplate struct {
	ExactMatch bool
	Protocol   *string
	Method     *string
	Host       *string
	Port       *int
	Path       *string
	Headers    []NamedParameter
	Params     []NamedParameter
	// Body is a regular expression that must match the whole request body.
	Body *string
}

// ResponseDescriptor describes a mocked response.
type ResponseDescriptor struct {
	// Delay in milliseconds.
	Delay     int64
	Code      int
	MediaType string
	Headers   []NamedParameter
	Body      string
	// BodyFile, when set, names a file next to the scenario file holding the body.
	BodyFile *string
}

// NewResponse returns a ResponseDescriptor with default code and media type.
func NewResponse() ResponseDescriptor {
	return ResponseDescriptor{Code: DefaultCode, MediaType: DefaultMediaType}
}

// NotFound is the response synthesized when no scenario answers a request.
func NotFound() *ResponseDescriptor {
	r := NewResponse()
	r.Code = 404
	r.Body = "Page not found"
	return &r
}

// Clone returns a deep copy of the descriptor.
func (r *ResponseDescriptor) Clone() *ResponseDescriptor {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = cloneParams(r.Headers)
	if r.BodyFile != nil {
		f := *r.BodyFile
		c.BodyFile = &f
	}
	return &c
}

// Matcher pairs a request template with the response or error it produces.
// Exactly one of Response and Error is expected; an entry with neither
// answers nothing.
type Matcher struct {
	Request  RequestTemplate
	Response *ResponseDescriptor
	Error    *NetworkError
}

// HTTPRequest is the engine's view of an outgoing request.
type HTTPRequest struct {
	Method  string
	Scheme  string
	Host    string
	Port    int
	Path    string
	Params  []NamedParameter
	Headers []NamedParameter
	Body    *string
}

// PathSegments splits the path on "/" after dropping the leading slash.
// A trailing slash yields an empty last segment.
func (r *HTTPRequest) PathSegments() []string {
	return strings.Split(strings.TrimPrefix(r.Path, "/"), "/")
}

// HeaderValues returns every value sent for the named header, case-insensitively.
func (r *HTTPRequest) HeaderValues(name string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) && h.Value != nil {
			values = append(values, *h.Value)
		}
	}
	return values
}

// ParamValues returns every value sent for the named query parameter.
func (r *HTTPRequest) ParamValues(name string) []string {
	var values []string
	for _, p := range r.Params {
		if p.Name == name && p.Value != nil {
			values = append(values, *p.Value)
		}
	}
	return values
}

// URL renders the request location as scheme://host:port/path?query.
func (r *HTTPRequest) URL() string {
	u := url.URL{
		Scheme: r.Scheme,
		Host:   r.Host,
		Path:   r.Path,
	}
	if r.Port > 0 {
		u.Host = r.Host + ":" + strconv.Itoa(r.Port)
	}
	if len(r.Params) > 0 {
		q := make([]string, 0, len(r.Params))
		for _, p := range r.Params {
			v := ""
			if p.Value != nil {
				v = *p.Value
			}
			q = append(q, url.QueryEscape(p.Name)+"="+url.QueryEscape(v))
		}
		u.RawQuery = strings.Join(q, "&")
	}
	return u.String()
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func cloneParams(in []NamedParameter) []NamedParameter {
	if in == nil {
		return nil
	}
	out := make([]NamedParameter, len(in))
	copy(out, in)
	return out
}
