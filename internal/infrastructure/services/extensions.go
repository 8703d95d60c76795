package services

import (
	"bufio"
	_ "embed"
	"strings"
)

// DefaultExtension is used for media types missing from the table.
const DefaultExtension = ".txt"

//go:embed mimetypes
var mimetypesFile string

// extensions maps a bare media type to a file extension. It is built once
// and never modified.
var extensions = parseMimetypes(mimetypesFile)

func parseMimetypes(src string) map[string]string {
	table := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ext, mediaType, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		table[strings.ToLower(strings.TrimSpace(mediaType))] = strings.TrimSpace(ext)
	}
	return table
}

// ExtensionFor returns the body file extension for a media type such as
// "image/png; charset=binary". Parameters are ignored.
func ExtensionFor(mediaType string) string {
	bare, _, _ := strings.Cut(mediaType, ";")
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(bare))]; ok {
		return ext
	}
	return DefaultExtension
}
