package services

import (
	"net/http"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// InferMediaType picks the media type recorded for a response: the
// Content-Type header when present, otherwise a sniffed type for non-empty
// bodies, otherwise the default media type.
func InferMediaType(contentType string, body []byte) string {
	if ct := strings.TrimSpace(contentType); ct != "" {
		return ct
	}
	if len(body) > 0 {
		return http.DetectContentType(body)
	}
	return scenario.DefaultMediaType
}
