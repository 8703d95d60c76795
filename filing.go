package httpmocker

import "github.com/sophialabs/httpmocker/internal/domain/filing"

// Filing policies.
type (
	// MirrorPath files a request under its URL path: /a/b becomes a/b.<ext>
	// and /a/ becomes a/index.<ext>.
	MirrorPath = filing.MirrorPath
	// SingleFile files every request in one file.
	SingleFile = filing.SingleFile
	// SingleFolder files requests flat inside one folder, path segments
	// joined with underscores.
	SingleFolder = filing.SingleFolder
	// ServerSpecific mirrors the path below a folder named after the host.
	ServerSpecific = filing.ServerSpecific
	// InMemory is a policy and a scenario registry keyed by full URL.
	InMemory = filing.InMemory
	// PolicyFunc adapts a function to a FilingPolicy.
	PolicyFunc = filing.Func
)

// NewInMemory creates an empty in-memory registry. Pass it in
// Config.Policies and register scenarios with Add.
func NewInMemory() *InMemory { return filing.NewInMemory() }
