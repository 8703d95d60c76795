package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

var _ scenario.Mapper = (*YAMLMapper)(nil)

// YAMLMapper reads and writes scenario files as a YAML sequence of cases.
// It works on yaml.Node trees so repeated header names survive a round trip.
type YAMLMapper struct{}

// NewYAMLMapper creates a YAMLMapper.
func NewYAMLMapper() *YAMLMapper { return &YAMLMapper{} }

func (m *YAMLMapper) Format() string { return FormatYAML }

// Unmarshal decodes a YAML scenario list. A single case mapping is
// accepted as a one-element list; an empty document is an empty list.
func (m *YAMLMapper) Unmarshal(data []byte) ([]scenario.Matcher, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var items []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		items = root.Content
	case yaml.MappingNode:
		items = []*yaml.Node{root}
	default:
		return nil, fmt.Errorf("unexpected YAML structure at line %d", root.Line)
	}

	out := make([]scenario.Matcher, 0, len(items))
	for i, item := range items {
		mt, err := decodeYAMLCase(item)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		out = append(out, mt)
	}
	return out, nil
}

// pairs walks a mapping node as key/value pairs in document order.
func pairs(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func yamlString(n *yaml.Node) *string {
	if isNull(n) {
		return nil
	}
	s := n.Value
	return &s
}

func yamlInt(n *yaml.Node) (int64, error) {
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid integer %q", n.Line, n.Value)
	}
	return v, nil
}

func decodeYAMLCase(n *yaml.Node) (scenario.Matcher, error) {
	var mt scenario.Matcher
	err := pairs(n, func(key string, v *yaml.Node) error {
		if isNull(v) {
			return nil
		}
		var err error
		switch key {
		case keyRequest:
			mt.Request, err = decodeYAMLRequest(v)
		case keyResponse:
			mt.Response, err = decodeYAMLResponse(v)
		case keyError:
			mt.Error, err = decodeYAMLError(v)
		}
		return err
	})
	return mt, err
}

func decodeYAMLRequest(n *yaml.Node) (scenario.RequestTemplate, error) {
	var t scenario.RequestTemplate
	err := pairs(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case keyExactMatch:
			t.ExactMatch, err = strconv.ParseBool(v.Value)
		case keyProtocol:
			t.Protocol = yamlString(v)
		case keyMethod:
			t.Method = yamlString(v)
		case keyHost:
			t.Host = yamlString(v)
		case keyPort:
			if !isNull(v) {
				var p int64
				p, err = yamlInt(v)
				port := int(p)
				t.Port = &port
			}
		case keyPath:
			t.Path = yamlString(v)
		case keyHeaders:
			t.Headers, err = decodeYAMLParams(v)
		case keyParams:
			t.Params, err = decodeYAMLParams(v)
		case keyBody:
			t.Body = yamlString(v)
		}
		return err
	})
	return t, err
}

func decodeYAMLResponse(n *yaml.Node) (*scenario.ResponseDescriptor, error) {
	r := scenario.NewResponse()
	err := pairs(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case keyDelay:
			r.Delay, err = yamlInt(v)
		case keyCode:
			var c int64
			c, err = yamlInt(v)
			r.Code = int(c)
		case keyMediaType:
			if !isNull(v) {
				r.MediaType = v.Value
			}
		case keyHeaders:
			r.Headers, err = decodeYAMLParams(v)
		case keyBody:
			if !isNull(v) {
				r.Body = v.Value
			}
		case keyBodyFile:
			r.BodyFile = yamlString(v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeYAMLError(n *yaml.Node) (*scenario.NetworkError, error) {
	e := &scenario.NetworkError{}
	err := pairs(n, func(key string, v *yaml.Node) error {
		switch key {
		case keyType:
			e.ExceptionType = v.Value
		case keyMessage:
			e.Message = yamlString(v)
		}
		return nil
	})
	return e, err
}

// decodeYAMLParams accepts a mapping (keys may repeat) or a sequence of
// {name, value} mappings.
func decodeYAMLParams(n *yaml.Node) ([]scenario.NamedParameter, error) {
	var out []scenario.NamedParameter
	switch {
	case isNull(n):
		return nil, nil
	case n.Kind == yaml.MappingNode:
		err := pairs(n, func(key string, v *yaml.Node) error {
			out = append(out, scenario.NamedParameter{Name: key, Value: yamlString(v)})
			return nil
		})
		return out, err
	case n.Kind == yaml.SequenceNode:
		for _, item := range n.Content {
			var p scenario.NamedParameter
			named := false
			err := pairs(item, func(key string, v *yaml.Node) error {
				switch key {
				case keyName:
					p.Name, named = v.Value, true
				case keyValue:
					p.Value = yamlString(v)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			if !named {
				return nil, fmt.Errorf("line %d: parameter entry without name", item.Line)
			}
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, errors.New("headers and params must be a mapping or a list")
	}
}

// Marshal encodes matchers as a YAML sequence.
func (m *YAMLMapper) Marshal(matchers []scenario.Matcher) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, mt := range matchers {
		root.Content = append(root.Content, encodeYAMLCase(mt))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

type mapping struct{ *yaml.Node }

func newMapping() mapping { return mapping{&yaml.Node{Kind: yaml.MappingNode}} }

func (m mapping) add(key string, value *yaml.Node) {
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
}

func (m mapping) str(key string, v *string) {
	if v != nil {
		m.add(key, strNode(*v))
	}
}

func (m mapping) integer(key string, v int64) {
	m.add(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)})
}

func (m mapping) params(key string, list []scenario.NamedParameter) {
	if len(list) == 0 {
		return
	}
	p := newMapping()
	for _, np := range list {
		if np.Value == nil {
			p.add(np.Name, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
		} else {
			p.add(np.Name, strNode(*np.Value))
		}
	}
	m.add(key, p.Node)
}

func strNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func encodeYAMLCase(mt scenario.Matcher) *yaml.Node {
	c := newMapping()

	req := newMapping()
	t := mt.Request
	if t.ExactMatch {
		req.add(keyExactMatch, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
	}
	req.str(keyProtocol, t.Protocol)
	req.str(keyMethod, t.Method)
	req.str(keyHost, t.Host)
	if t.Port != nil {
		req.integer(keyPort, int64(*t.Port))
	}
	req.str(keyPath, t.Path)
	req.params(keyHeaders, t.Headers)
	req.params(keyParams, t.Params)
	req.str(keyBody, t.Body)
	c.add(keyRequest, req.Node)

	if r := mt.Response; r != nil {
		resp := newMapping()
		if r.Delay > 0 {
			resp.integer(keyDelay, r.Delay)
		}
		resp.integer(keyCode, int64(r.Code))
		resp.str(keyMediaType, &r.MediaType)
		resp.params(keyHeaders, r.Headers)
		if r.Body != "" || r.BodyFile == nil {
			resp.str(keyBody, &r.Body)
		}
		resp.str(keyBodyFile, r.BodyFile)
		c.add(keyResponse, resp.Node)
	}

	if e := mt.Error; e != nil {
		en := newMapping()
		en.str(keyType, &e.ExceptionType)
		en.str(keyMessage, e.Message)
		c.add(keyError, en.Node)
	}

	return c.Node
}
