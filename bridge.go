package httpmocker

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// unknownStatus is the reason phrase for codes net/http does not know.
const unknownStatus = "Unknown error code"

// readBody drains and closes the request body.
func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// withBody returns a copy of req carrying body, for the real transport.
func withBody(req *http.Request, body []byte) *http.Request {
	out := req.Clone(req.Context())
	if req.Body == nil {
		return out
	}
	if len(body) == 0 {
		out.Body = http.NoBody
		out.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return out
	}
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	out.ContentLength = int64(len(body))
	return out
}

// toRequest converts an outgoing request into the engine's view of it.
func toRequest(req *http.Request, body []byte) *scenario.HTTPRequest {
	u := req.URL
	out := &scenario.HTTPRequest{
		Method:  req.Method,
		Scheme:  strings.ToLower(u.Scheme),
		Host:    u.Hostname(),
		Path:    u.Path,
		Params:  queryParams(u.RawQuery),
		Headers: headerParams(req.Header),
	}
	if out.Scheme == "" {
		out.Scheme = "http"
	}
	port := u.Port()
	if out.Host == "" && req.Host != "" {
		out.Host, port = splitHost(req.Host)
	}
	if out.Path == "" {
		out.Path = "/"
	}
	out.Port = defaultPort(out.Scheme)
	if p, err := strconv.Atoi(port); err == nil {
		out.Port = p
	}
	if len(body) > 0 {
		s := string(body)
		out.Body = &s
	}
	return out
}

// splitHost separates an optional port from a Host header value,
// including bracketed IPv6 literals.
func splitHost(hostport string) (host, port string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]"), ""
	}
	return host, port
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// queryParams keeps the order and repetitions of the query string. A name
// without "=" has no value.
func queryParams(rawQuery string) []scenario.NamedParameter {
	var out []scenario.NamedParameter
	for part := range strings.SplitSeq(rawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, hasValue := strings.Cut(part, "=")
		name = unescape(name)
		if !hasValue {
			out = append(out, scenario.NameOnly(name))
			continue
		}
		out = append(out, scenario.Param(name, unescape(value)))
	}
	return out
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// headerParams flattens h in name order, one parameter per value.
func headerParams(h http.Header, skip ...string) []scenario.NamedParameter {
	names := make([]string, 0, len(h))
	for name := range h {
		if !slices.ContainsFunc(skip, func(s string) bool { return strings.EqualFold(s, name) }) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var out []scenario.NamedParameter
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, scenario.Param(name, v))
		}
	}
	return out
}

// toResponse builds the response returned for a mocked answer.
func toResponse(req *http.Request, d *scenario.ResponseDescriptor) *http.Response {
	h := make(http.Header)
	for _, p := range d.Headers {
		v := ""
		if p.Value != nil {
			v = *p.Value
		}
		h.Add(p.Name, v)
	}
	if d.MediaType != "" {
		h.Set("Content-Type", d.MediaType)
	}
	body := []byte(d.Body)
	return &http.Response{
		Status:        strconv.Itoa(d.Code) + " " + StatusText(d.Code),
		StatusCode:    d.Code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// StatusText is the reason phrase of a mocked status code.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return unknownStatus
}

// fromResponse describes a real response for recording. The body is
// recorded separately.
func fromResponse(resp *http.Response) *scenario.ResponseDescriptor {
	r := scenario.NewResponse()
	r.Code = resp.StatusCode
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		r.MediaType = ct
	}
	r.Headers = headerParams(resp.Header, "Content-Type", "Content-Length")
	return &r
}
