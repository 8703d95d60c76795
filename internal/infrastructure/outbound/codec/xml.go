package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

var _ scenario.Mapper = (*XMLMapper)(nil)

// XMLMapper reads and writes scenario files of the form
//
//	<scenarios>
//	  <case>
//	    <request exact-match="true">
//	      <url protocol="" method="" host="" port="" path=""><param name="">v</param></url>
//	      <headers><header name="">v</header></headers>
//	      <body>pattern</body>
//	    </request>
//	    <response delay="" code="" media-type="">
//	      <headers>...</headers>
//	      <body file="">literal</body>
//	    </response>
//	    <error type="">message</error>
//	  </case>
//	</scenarios>
//
// A header or param element without content has no value.
type XMLMapper struct{}

// NewXMLMapper creates an XMLMapper.
func NewXMLMapper() *XMLMapper { return &XMLMapper{} }

func (m *XMLMapper) Format() string { return FormatXML }

// Unmarshal decodes an XML scenario list.
func (m *XMLMapper) Unmarshal(data []byte) ([]scenario.Matcher, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := xmlquery.FindOne(doc, "/scenarios")
	if root == nil {
		return nil, errors.New("XML scenario file must have a <scenarios> root")
	}

	var out []scenario.Matcher
	for i, c := range children(root) {
		if c.Data != "case" {
			return nil, fmt.Errorf("case %d: unknown tag <%s>", i, c.Data)
		}
		mt, err := decodeXMLCase(c)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		out = append(out, mt)
	}
	return out, nil
}

func children(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// attr distinguishes a missing attribute (nil) from an empty one.
func attr(n *xmlquery.Node, name string) *string {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			v := a.Value
			return &v
		}
	}
	return nil
}

// text returns the element content, or nil for an empty element.
func text(n *xmlquery.Node) *string {
	if n.FirstChild == nil {
		return nil
	}
	s := n.InnerText()
	return &s
}

func decodeXMLCase(n *xmlquery.Node) (scenario.Matcher, error) {
	var mt scenario.Matcher
	for _, c := range children(n) {
		var err error
		switch c.Data {
		case keyRequest:
			mt.Request, err = decodeXMLRequest(c)
		case keyResponse:
			mt.Response, err = decodeXMLResponse(c)
		case keyError:
			mt.Error = &scenario.NetworkError{Message: text(c)}
			if t := attr(c, keyType); t != nil {
				mt.Error.ExceptionType = *t
			}
		default:
			err = fmt.Errorf("unknown tag <%s>", c.Data)
		}
		if err != nil {
			return mt, err
		}
	}
	return mt, nil
}

func decodeXMLRequest(n *xmlquery.Node) (scenario.RequestTemplate, error) {
	var t scenario.RequestTemplate
	if v := attr(n, keyExactMatch); v != nil {
		exact, err := strconv.ParseBool(*v)
		if err != nil {
			return t, fmt.Errorf("invalid exact-match %q", *v)
		}
		t.ExactMatch = exact
	}
	for _, c := range children(n) {
		switch c.Data {
		case "url":
			t.Protocol = attr(c, keyProtocol)
			t.Method = attr(c, keyMethod)
			t.Host = attr(c, keyHost)
			t.Path = attr(c, keyPath)
			if p := attr(c, keyPort); p != nil {
				port, err := strconv.Atoi(*p)
				if err != nil {
					return t, fmt.Errorf("invalid port %q", *p)
				}
				t.Port = &port
			}
			params, err := decodeXMLParams(c, "param")
			if err != nil {
				return t, err
			}
			t.Params = params
		case keyHeaders:
			headers, err := decodeXMLParams(c, "header")
			if err != nil {
				return t, err
			}
			t.Headers = headers
		case keyBody:
			t.Body = text(c)
		default:
			return t, fmt.Errorf("unknown tag <%s> in request", c.Data)
		}
	}
	return t, nil
}

func decodeXMLResponse(n *xmlquery.Node) (*scenario.ResponseDescriptor, error) {
	r := scenario.NewResponse()
	if v := attr(n, keyDelay); v != nil {
		d, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid delay %q", *v)
		}
		r.Delay = d
	}
	if v := attr(n, keyCode); v != nil {
		c, err := strconv.Atoi(*v)
		if err != nil {
			return nil, fmt.Errorf("invalid code %q", *v)
		}
		r.Code = c
	}
	if v := attr(n, keyMediaType); v != nil {
		r.MediaType = *v
	}
	for _, c := range children(n) {
		switch c.Data {
		case keyHeaders:
			headers, err := decodeXMLParams(c, "header")
			if err != nil {
				return nil, err
			}
			r.Headers = headers
		case keyBody:
			if b := text(c); b != nil {
				r.Body = *b
			}
			r.BodyFile = attr(c, "file")
		default:
			return nil, fmt.Errorf("unknown tag <%s> in response", c.Data)
		}
	}
	return &r, nil
}

func decodeXMLParams(n *xmlquery.Node, tag string) ([]scenario.NamedParameter, error) {
	var out []scenario.NamedParameter
	for _, c := range children(n) {
		if c.Data != tag {
			return nil, fmt.Errorf("unknown tag <%s>, want <%s>", c.Data, tag)
		}
		name := attr(c, keyName)
		if name == nil {
			return nil, fmt.Errorf("<%s> without name", tag)
		}
		out = append(out, scenario.NamedParameter{Name: *name, Value: text(c)})
	}
	return out, nil
}

// Marshal encodes matchers as an indented XML document.
func (m *XMLMapper) Marshal(matchers []scenario.Matcher) ([]byte, error) {
	w := &xmlWriter{}
	w.buf.WriteString(xml.Header)
	w.open(0, "scenarios", nil)
	for _, mt := range matchers {
		w.open(1, "case", nil)
		w.request(mt.Request)
		if mt.Response != nil {
			w.response(mt.Response)
		}
		if e := mt.Error; e != nil {
			w.leaf(2, keyError, []xmlAttr{{keyType, &e.ExceptionType}}, e.Message)
		}
		w.close(1, "case")
	}
	w.close(0, "scenarios")
	return w.buf.Bytes(), nil
}

type xmlAttr struct {
	name  string
	value *string
}

type xmlWriter struct {
	buf bytes.Buffer
}

func (w *xmlWriter) indent(level int) {
	w.buf.WriteString(strings.Repeat("  ", level))
}

func (w *xmlWriter) startTag(level int, tag string, attrs []xmlAttr) {
	w.indent(level)
	w.buf.WriteString("<" + tag)
	for _, a := range attrs {
		if a.value == nil {
			continue
		}
		w.buf.WriteString(" " + a.name + `="`)
		_ = xml.EscapeText(&w.buf, []byte(*a.value))
		w.buf.WriteByte('"')
	}
}

func (w *xmlWriter) open(level int, tag string, attrs []xmlAttr) {
	w.startTag(level, tag, attrs)
	w.buf.WriteString(">\n")
}

func (w *xmlWriter) close(level int, tag string) {
	w.indent(level)
	w.buf.WriteString("</" + tag + ">\n")
}

// leaf writes an element on one line, self-closing when content is nil.
func (w *xmlWriter) leaf(level int, tag string, attrs []xmlAttr, content *string) {
	w.startTag(level, tag, attrs)
	if content == nil {
		w.buf.WriteString(" />\n")
		return
	}
	w.buf.WriteByte('>')
	_ = xml.EscapeText(&w.buf, []byte(*content))
	w.buf.WriteString("</" + tag + ">\n")
}

func (w *xmlWriter) params(level int, wrapper, tag string, list []scenario.NamedParameter) {
	if len(list) == 0 {
		return
	}
	if wrapper != "" {
		w.open(level, wrapper, nil)
		level++
	}
	for _, p := range list {
		w.leaf(level, tag, []xmlAttr{{keyName, scenario.Ptr(p.Name)}}, p.Value)
	}
	if wrapper != "" {
		w.close(level-1, wrapper)
	}
}

func (w *xmlWriter) request(t scenario.RequestTemplate) {
	var attrs []xmlAttr
	if t.ExactMatch {
		attrs = append(attrs, xmlAttr{keyExactMatch, scenario.Ptr("true")})
	}
	w.open(2, keyRequest, attrs)

	var port *string
	if t.Port != nil {
		port = scenario.Ptr(strconv.Itoa(*t.Port))
	}
	urlAttrs := []xmlAttr{
		{keyProtocol, t.Protocol},
		{keyMethod, t.Method},
		{keyHost, t.Host},
		{keyPort, port},
		{keyPath, t.Path},
	}
	if len(t.Params) > 0 {
		w.open(3, "url", urlAttrs)
		w.params(4, "", "param", t.Params)
		w.close(3, "url")
	} else {
		w.leaf(3, "url", urlAttrs, nil)
	}

	w.params(3, keyHeaders, "header", t.Headers)
	if t.Body != nil {
		w.leaf(3, keyBody, nil, t.Body)
	}
	w.close(2, keyRequest)
}

func (w *xmlWriter) response(r *scenario.ResponseDescriptor) {
	attrs := []xmlAttr{
		{keyCode, scenario.Ptr(strconv.Itoa(r.Code))},
		{keyMediaType, &r.MediaType},
	}
	if r.Delay > 0 {
		attrs = append([]xmlAttr{{keyDelay, scenario.Ptr(strconv.FormatInt(r.Delay, 10))}}, attrs...)
	}
	w.open(2, keyResponse, attrs)
	w.params(3, keyHeaders, "header", r.Headers)
	var body *string
	if r.Body != "" {
		body = &r.Body
	}
	w.leaf(3, keyBody, []xmlAttr{{"file", r.BodyFile}}, body)
	w.close(2, keyResponse)
}
