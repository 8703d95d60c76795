package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

var _ scenario.Mapper = (*JSONMapper)(nil)

// JSONMapper reads and writes scenario files as a JSON array of cases.
// Headers and params are objects whose keys may repeat.
type JSONMapper struct {
	opts *pretty.Options
}

// NewJSONMapper creates a JSONMapper writing two-space indented output.
func NewJSONMapper() *JSONMapper {
	return &JSONMapper{opts: &pretty.Options{Width: 100, Indent: "  "}}
}

func (m *JSONMapper) Format() string { return FormatJSON }

// Unmarshal decodes a JSON scenario list.
func (m *JSONMapper) Unmarshal(data []byte) ([]scenario.Matcher, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON scenario file")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("JSON scenario file must be an array")
	}

	var (
		out []scenario.Matcher
		err error
	)
	root.ForEach(func(_, item gjson.Result) bool {
		var mt scenario.Matcher
		if mt, err = decodeJSONCase(item); err != nil {
			err = fmt.Errorf("case %d: %w", len(out), err)
			return false
		}
		out = append(out, mt)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeJSONCase(item gjson.Result) (scenario.Matcher, error) {
	var mt scenario.Matcher
	if !item.IsObject() {
		return mt, errors.New("expected an object")
	}
	var err error
	item.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyRequest:
			mt.Request, err = decodeJSONRequest(value)
		case keyResponse:
			if value.Type != gjson.Null {
				mt.Response, err = decodeJSONResponse(value)
			}
		case keyError:
			if value.Type != gjson.Null {
				mt.Error = decodeJSONError(value)
			}
		}
		return err == nil
	})
	return mt, err
}

func decodeJSONRequest(v gjson.Result) (scenario.RequestTemplate, error) {
	var t scenario.RequestTemplate
	if v.Type == gjson.Null {
		return t, nil
	}
	if !v.IsObject() {
		return t, errors.New("request must be an object")
	}
	var err error
	v.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyExactMatch:
			t.ExactMatch = value.Bool()
		case keyProtocol:
			t.Protocol = jsonString(value)
		case keyMethod:
			t.Method = jsonString(value)
		case keyHost:
			t.Host = jsonString(value)
		case keyPort:
			if value.Type != gjson.Null {
				port, perr := strconv.Atoi(value.String())
				if perr != nil {
					err = fmt.Errorf("invalid port %q", value.String())
					return false
				}
				t.Port = &port
			}
		case keyPath:
			t.Path = jsonString(value)
		case keyHeaders:
			t.Headers, err = decodeJSONParams(value)
		case keyParams:
			t.Params, err = decodeJSONParams(value)
		case keyBody:
			t.Body = jsonString(value)
		}
		return err == nil
	})
	return t, err
}

func decodeJSONResponse(v gjson.Result) (*scenario.ResponseDescriptor, error) {
	if !v.IsObject() {
		return nil, errors.New("response must be an object")
	}
	r := scenario.NewResponse()
	var err error
	v.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyDelay:
			r.Delay = value.Int()
		case keyCode:
			r.Code = int(value.Int())
		case keyMediaType:
			if value.Type != gjson.Null {
				r.MediaType = value.String()
			}
		case keyHeaders:
			r.Headers, err = decodeJSONParams(value)
		case keyBody:
			r.Body = value.String()
		case keyBodyFile:
			r.BodyFile = jsonString(value)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeJSONError(v gjson.Result) *scenario.NetworkError {
	e := &scenario.NetworkError{}
	v.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyType:
			e.ExceptionType = value.String()
		case keyMessage:
			e.Message = jsonString(value)
		}
		return true
	})
	return e
}

// decodeJSONParams reads {"name": "value", ...}, keeping repeated keys, or
// the list form [{"name": ..., "value": ...}].
func decodeJSONParams(v gjson.Result) ([]scenario.NamedParameter, error) {
	var out []scenario.NamedParameter
	switch {
	case v.Type == gjson.Null:
		return nil, nil
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			out = append(out, scenario.NamedParameter{Name: key.String(), Value: jsonString(value)})
			return true
		})
	case v.IsArray():
		var err error
		v.ForEach(func(_, item gjson.Result) bool {
			name := item.Get(keyName)
			if !name.Exists() {
				err = errors.New("parameter entry without name")
				return false
			}
			out = append(out, scenario.NamedParameter{Name: name.String(), Value: jsonString(item.Get(keyValue))})
			return true
		})
		return out, err
	default:
		return nil, errors.New("headers and params must be an object or a list")
	}
	return out, nil
}

func jsonString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

// Marshal encodes matchers as an indented JSON array.
func (m *JSONMapper) Marshal(matchers []scenario.Matcher) ([]byte, error) {
	var w jsonWriter
	w.raw("[")
	for i, mt := range matchers {
		if i > 0 {
			w.raw(",")
		}
		w.matcher(mt)
	}
	w.raw("]")
	if w.err != nil {
		return nil, w.err
	}
	return pretty.PrettyOptions(w.buf.Bytes(), m.opts), nil
}

// jsonWriter emits compact JSON in field order, repeating keys as given.
type jsonWriter struct {
	buf   bytes.Buffer
	err   error
	comma bool
}

func (w *jsonWriter) raw(s string) {
	w.buf.WriteString(s)
}

func (w *jsonWriter) open() {
	w.buf.WriteByte('{')
	w.comma = false
}

func (w *jsonWriter) close() {
	w.buf.WriteByte('}')
	w.comma = true
}

func (w *jsonWriter) key(k string) {
	if w.comma {
		w.buf.WriteByte(',')
	}
	w.str(k)
	w.buf.WriteByte(':')
	w.comma = true
}

func (w *jsonWriter) str(s string) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil && w.err == nil {
		w.err = err
	}
	w.buf.Write(bytes.TrimRight(b.Bytes(), "\n"))
}

func (w *jsonWriter) strField(k string, v *string) {
	if v == nil {
		return
	}
	w.key(k)
	w.str(*v)
}

func (w *jsonWriter) intField(k string, v int64) {
	w.key(k)
	w.buf.WriteString(strconv.FormatInt(v, 10))
}

func (w *jsonWriter) params(k string, list []scenario.NamedParameter) {
	if len(list) == 0 {
		return
	}
	w.key(k)
	w.open()
	for _, p := range list {
		w.key(p.Name)
		if p.Value == nil {
			w.buf.WriteString("null")
		} else {
			w.str(*p.Value)
		}
	}
	w.close()
}

func (w *jsonWriter) matcher(mt scenario.Matcher) {
	w.open()

	w.key(keyRequest)
	w.open()
	t := mt.Request
	if t.ExactMatch {
		w.key(keyExactMatch)
		w.buf.WriteString("true")
	}
	w.strField(keyProtocol, t.Protocol)
	w.strField(keyMethod, t.Method)
	w.strField(keyHost, t.Host)
	if t.Port != nil {
		w.intField(keyPort, int64(*t.Port))
	}
	w.strField(keyPath, t.Path)
	w.params(keyHeaders, t.Headers)
	w.params(keyParams, t.Params)
	w.strField(keyBody, t.Body)
	w.close()

	if r := mt.Response; r != nil {
		w.key(keyResponse)
		w.open()
		if r.Delay > 0 {
			w.intField(keyDelay, r.Delay)
		}
		w.intField(keyCode, int64(r.Code))
		w.strField(keyMediaType, &r.MediaType)
		w.params(keyHeaders, r.Headers)
		if r.Body != "" || r.BodyFile == nil {
			w.strField(keyBody, &r.Body)
		}
		w.strField(keyBodyFile, r.BodyFile)
		w.close()
	}

	if e := mt.Error; e != nil {
		w.key(keyError)
		w.open()
		w.strField(keyType, &e.ExceptionType)
		w.strField(keyMessage, e.Message)
		w.close()
	}

	w.close()
}
