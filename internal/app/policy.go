package app

import (
	"fmt"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
)

// ParsePolicy builds a filing policy from its command line form:
// "mirror", "server", "folder:<dir>" or "file:<path>".
func ParsePolicy(value, format string) (filing.Policy, error) {
	kind, arg, _ := strings.Cut(value, ":")
	switch strings.ToLower(kind) {
	case "", "mirror":
		return filing.MirrorPath{Format: format}, nil
	case "server":
		return filing.ServerSpecific{Format: format}, nil
	case "folder":
		if arg == "" {
			return nil, fmt.Errorf("policy %q needs a folder", value)
		}
		return filing.SingleFolder{Folder: arg, Format: format}, nil
	case "file":
		if arg == "" {
			return nil, fmt.Errorf("policy %q needs a file", value)
		}
		return filing.SingleFile{File: arg}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want mirror, server, folder:<dir> or file:<path>)", value)
	}
}
