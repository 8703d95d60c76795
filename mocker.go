package httpmocker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/usecases"
	"github.com/sophialabs/httpmocker/internal/infrastructure/wiring"
)

var _ http.RoundTripper = (*Mocker)(nil)

// Mocker is an http.RoundTripper that mocks, passes through or records
// requests depending on its current Mode. It is safe for concurrent use.
type Mocker struct {
	container *wiring.Container
	transport http.RoundTripper
	logger    ports.Logger

	modeMu sync.Mutex
	mode   atomic.Int32
}

// New validates cfg and builds a Mocker. Starting in Record mode without a
// root folder and a mapper is rejected.
func New(cfg Config) (*Mocker, error) {
	if _, err := ParseMode(cfg.Mode.String()); err != nil {
		return nil, err
	}
	if cfg.Mode == Record {
		if err := recorderConfigured(cfg); err != nil {
			return nil, err
		}
	}

	logger := logging.New(cfg.Logger).With("component", "httpmocker")
	c, err := wiring.New(wiring.Params{
		RootDir:       cfg.RootFolder,
		Loader:        cfg.Loader,
		Mapper:        cfg.Mapper,
		Policies:      cfg.Policies,
		RecordPolicy:  cfg.RecordPolicy,
		Callbacks:     cfg.Callbacks,
		DefaultDelay:  cfg.DefaultDelay,
		FailOnError:   cfg.FailOnError,
		CacheSize:     cfg.CacheSize,
		Watch:         cfg.Watch,
		WatchDebounce: cfg.WatchDebounce,
		TraceSize:     cfg.TraceSize,
		Clock:         cfg.Clock,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	m := &Mocker{container: c, transport: transport, logger: logger}
	m.mode.Store(int32(cfg.Mode))
	return m, nil
}

func recorderConfigured(cfg Config) error {
	if cfg.RootFolder == "" {
		return ErrNoRootFolder
	}
	if cfg.Mapper == nil {
		return ErrNoMapper
	}
	return nil
}

// Mode returns the current mode.
func (m *Mocker) Mode() Mode {
	return Mode(m.mode.Load())
}

// SetMode switches the mode. Switching to Record without a recorder fails
// with ErrNoRecorder and leaves the mode unchanged.
func (m *Mocker) SetMode(mode Mode) error {
	if _, err := ParseMode(mode.String()); err != nil {
		return err
	}
	m.modeMu.Lock()
	defer m.modeMu.Unlock()
	if mode == Record && m.container.RecordCallUseCase() == nil {
		return ErrNoRecorder
	}
	prev := Mode(m.mode.Swap(int32(mode)))
	if prev != mode {
		m.logger.Info("mode changed", "from", prev.String(), "to", mode.String())
	}
	return nil
}

// Trace returns up to n of the most recently handled requests, oldest first.
func (m *Mocker) Trace(n int) []TraceEntry {
	return m.container.TraceBuf().Last(n)
}

// ResetTrace drops the request history.
func (m *Mocker) ResetTrace() {
	m.container.TraceBuf().Reset()
}

// Close stops background work such as file watching.
func (m *Mocker) Close() error {
	m.container.Close()
	return nil
}

// RoundTrip handles req according to the current mode.
func (m *Mocker) RoundTrip(req *http.Request) (*http.Response, error) {
	mode := m.Mode()
	if mode == Disabled {
		return m.passthrough(mode, req, trace.Entry{})
	}

	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	hreq := toRequest(req, body)

	switch mode {
	case Enabled:
		res, err := m.container.ResolveResponseUseCase().Execute(req.Context(), hreq)
		m.addTrace(mode, res.TraceEntry)
		if err != nil {
			return nil, err
		}
		return toResponse(req, res.Response), nil
	case Mixed:
		res, err := m.container.ResolveResponseUseCase().ExecuteOrNil(req.Context(), hreq)
		if err != nil || res.Response != nil {
			m.addTrace(mode, res.TraceEntry)
			if err != nil {
				return nil, err
			}
			return toResponse(req, res.Response), nil
		}
		return m.passthrough(mode, withBody(req, body), res.TraceEntry)
	case Record:
		return m.record(req, hreq, body)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int32(mode))
	}
}

// passthrough sends req to the real transport, extending entry with the outcome.
func (m *Mocker) passthrough(mode Mode, req *http.Request, entry trace.Entry) (*http.Response, error) {
	entry = m.baseEntry(req, entry)
	entry.Source = trace.SourcePassthrough
	resp, err := m.transport.RoundTrip(req)
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Code = resp.StatusCode
	}
	m.addTrace(mode, entry)
	return resp, err
}

// record performs the real call and records the exchange. The caller gets
// a fully buffered response; recording failures only surface with
// FailOnError, in which case the response is closed. A failed call is
// recorded too and its error returned, joined with any recording failure.
func (m *Mocker) record(req *http.Request, hreq *scenario.HTTPRequest, body []byte) (*http.Response, error) {
	ctx := req.Context()
	recorder := m.container.RecordCallUseCase()
	entry := m.baseEntry(req, trace.Entry{Source: trace.SourceRecorded})
	defer func() { m.addTrace(Record, entry) }()

	resp, err := m.transport.RoundTrip(withBody(req, body))
	if err == nil {
		var data []byte
		data, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err == nil {
			resp.Body = io.NopCloser(bytes.NewReader(data))
			resp.ContentLength = int64(len(data))
			entry.Code = resp.StatusCode

			res, recErr := recorder.Execute(ctx, usecases.CallRecord{
				Request:     hreq,
				Response:    fromResponse(resp),
				Body:        data,
				ContentType: resp.Header.Get("Content-Type"),
			})
			entry.File = res.File
			if recErr != nil {
				entry.Error = recErr.Error()
				resp.Body.Close()
				return nil, recErr
			}
			return resp, nil
		}
	}

	res, recErr := recorder.Execute(ctx, usecases.CallRecord{Request: hreq, Err: err})
	entry.File = res.File
	if recErr != nil {
		err = errors.Join(err, recErr)
	}
	entry.Error = err.Error()
	return nil, err
}

func (m *Mocker) baseEntry(req *http.Request, entry trace.Entry) trace.Entry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.container.Clock().Now()
	}
	if entry.Method == "" {
		entry.Method = req.Method
		entry.URL = req.URL.String()
	}
	return entry
}

func (m *Mocker) addTrace(mode Mode, entry trace.Entry) {
	entry.Mode = mode.String()
	m.container.TraceBuf().Add(entry)
}
