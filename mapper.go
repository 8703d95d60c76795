package httpmocker

import "github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"

// Scenario file formats.
const (
	FormatJSON = codec.FormatJSON
	FormatYAML = codec.FormatYAML
	FormatXML  = codec.FormatXML
)

func JSONMapper() Mapper { return codec.NewJSONMapper() }
func YAMLMapper() Mapper { return codec.NewYAMLMapper() }
func XMLMapper() Mapper  { return codec.NewXMLMapper() }

// MapperFor returns the mapper for a format name ("json", "yaml", "yml"
// or "xml").
func MapperFor(format string) (Mapper, error) { return codec.ForFormat(format) }
