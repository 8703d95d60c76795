// Package httpmocker is an http.RoundTripper that answers requests from
// scenario files or callbacks, passes them through to a real transport, or
// records real exchanges as scenario files.
package httpmocker

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

type (
	Matcher            = scenario.Matcher
	RequestTemplate    = scenario.RequestTemplate
	ResponseDescriptor = scenario.ResponseDescriptor
	NamedParameter     = scenario.NamedParameter
	NetworkError       = scenario.NetworkError
	ReplayedError      = scenario.ReplayedError
	HTTPRequest        = scenario.HTTPRequest
	Mapper             = scenario.Mapper
	Loader             = scenario.Loader

	// FilingPolicy maps a request to the path of its scenario file.
	FilingPolicy = filing.Policy
	// RequestCallback answers requests programmatically. Returning a nil
	// response and a nil error passes to the next provider.
	RequestCallback = services.RequestCallback
	Clock           = ports.Clock
	TraceEntry      = trace.Entry
)

// Param builds a header or query parameter that must have value.
func Param(name, value string) NamedParameter { return scenario.Param(name, value) }

// NameOnly builds a header or query parameter that only has to be present.
func NameOnly(name string) NamedParameter { return scenario.NameOnly(name) }

// NewResponse returns a 200 text/plain response.
func NewResponse() ResponseDescriptor { return scenario.NewResponse() }

// Ptr returns a pointer to v, for the optional template fields.
func Ptr[T any](v T) *T { return &v }

// Configuration errors.
var (
	ErrNoRecorder   = errors.New("recording is not configured: a root folder and a mapper are required")
	ErrNoRootFolder = errors.New("record mode requires a root folder")
	ErrNoMapper     = errors.New("record mode requires a mapper")
	ErrInvalidMode  = errors.New("invalid mode")
)

// Config holds everything needed to build a Mocker. It is read once by New.
type Config struct {
	// Policies map requests to scenario files. Each gets its own static
	// provider, consulted in order after the callbacks. When empty and a
	// mapper is set, files are read through a MirrorPath in its format.
	Policies []FilingPolicy
	// Loader reads scenario files. Defaults to files under RootFolder.
	Loader Loader
	// Mapper decodes scenario files and encodes recorded ones.
	Mapper    Mapper
	Callbacks []RequestCallback
	// DefaultDelay applies to mocked responses without their own delay.
	DefaultDelay time.Duration
	// FailOnError makes recording errors fail the request.
	FailOnError bool
	Mode        Mode

	// RootFolder is where calls are recorded.
	RootFolder string
	// RecordPolicy defaults to the first file policy, then to a mirror path.
	RecordPolicy FilingPolicy

	// Transport performs real calls. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// CacheSize bounds the number of decoded scenario files kept in memory.
	// Zero reads files on every request.
	CacheSize int
	// Watch drops cached scenario files when they change on disk.
	Watch         bool
	WatchDebounce time.Duration

	// TraceSize is the number of handled requests kept for inspection.
	TraceSize int
	Clock     Clock
	// Logger defaults to discarding everything.
	Logger *slog.Logger
}
