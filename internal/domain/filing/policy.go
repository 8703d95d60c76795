// Package filing maps requests to scenario file paths.
package filing

import (
	"path"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// Policy resolves the scenario file path for a request. Implementations
// must be total: every request yields a path.
type Policy interface {
	Path(req *scenario.HTTPRequest) string
}

// Func adapts an ordinary function to a Policy.
type Func func(req *scenario.HTTPRequest) string

func (f Func) Path(req *scenario.HTTPRequest) string { return f(req) }

// MirrorPath reproduces the URL path, using index.<ext> for directory-like paths.
type MirrorPath struct {
	Format string
}

func (p MirrorPath) Path(req *scenario.HTTPRequest) string {
	return mirror(req.PathSegments(), p.Format)
}

// SingleFile always resolves to the same file.
type SingleFile struct {
	File string
}

func (p SingleFile) Path(*scenario.HTTPRequest) string { return p.File }

// SingleFolder flattens the path segments with "_" into one folder.
type SingleFolder struct {
	Folder string
	Format string
}

func (p SingleFolder) Path(req *scenario.HTTPRequest) string {
	var parts []string
	for _, s := range req.PathSegments() {
		if s != "" {
			parts = append(parts, s)
		}
	}
	name := "index"
	if len(parts) > 0 {
		name = strings.Join(parts, "_")
	}
	return path.Join(p.Folder, name+"."+p.Format)
}

// ServerSpecific prefixes the mirrored path with the request host.
type ServerSpecific struct {
	Format string
}

func (p ServerSpecific) Path(req *scenario.HTTPRequest) string {
	return req.Host + "/" + mirror(req.PathSegments(), p.Format)
}

// BaseName is the last path segment, or "index" when the path ends with "/".
func BaseName(req *scenario.HTTPRequest) string {
	segs := req.PathSegments()
	last := segs[len(segs)-1]
	if last == "" {
		return "index"
	}
	return last
}

func mirror(segs []string, format string) string {
	last := len(segs) - 1
	if segs[last] == "" {
		segs[last] = "index"
	}
	return strings.Join(segs, "/") + "." + format
}
