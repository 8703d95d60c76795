// Package codec encodes and decodes scenario files. Every format carries
// the same fields; header and parameter lists keep order and repeated names.
package codec

import (
	"fmt"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// Format tags, also used as scenario file extensions.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXML  = "xml"
)

// Field names shared by the JSON and YAML layouts.
const (
	keyRequest    = "request"
	keyResponse   = "response"
	keyError      = "error"
	keyExactMatch = "exact-match"
	keyProtocol   = "protocol"
	keyMethod     = "method"
	keyHost       = "host"
	keyPort       = "port"
	keyPath       = "path"
	keyHeaders    = "headers"
	keyParams     = "params"
	keyBody       = "body"
	keyDelay      = "delay"
	keyCode       = "code"
	keyMediaType  = "media-type"
	keyBodyFile   = "body-file"
	keyType       = "type"
	keyMessage    = "message"
	keyName       = "name"
	keyValue      = "value"
)

// Formats lists the supported format tags.
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatXML}
}

// ForFormat returns the mapper for a format tag. "yml" is accepted for YAML.
func ForFormat(format string) (scenario.Mapper, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONMapper(), nil
	case FormatYAML, "yml":
		return NewYAMLMapper(), nil
	case FormatXML:
		return NewXMLMapper(), nil
	default:
		return nil, fmt.Errorf("unsupported scenario format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// ForPath picks a mapper from a file extension.
func ForPath(path string) (scenario.Mapper, error) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return nil, fmt.Errorf("cannot infer scenario format of %q", path)
	}
	return ForFormat(path[i+1:])
}
