package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"regexp"
	"strconv"
	"sync"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// CallRecord is one real exchange to persist. Err is set instead of
// Response when the call failed.
type CallRecord struct {
	Request     *scenario.HTTPRequest
	Response    *scenario.ResponseDescriptor
	Body        []byte
	ContentType string
	Err         error
}

// RecordResult describes what was written.
type RecordResult struct {
	File     string
	BodyFile string
	// Index is the position of the new entry in the scenario file.
	Index int
}

// RecordCallUseCase appends real exchanges to scenario files.
type RecordCallUseCase struct {
	policy      filing.Policy
	loader      scenario.Loader
	mapper      scenario.Mapper
	writer      ports.FileWriter
	cache       *services.ScenarioCache
	failOnError bool
	logger      ports.Logger

	locks [lockStripes]sync.Mutex
}

// lockStripes bounds the number of scenario file locks. Paths sharing a
// stripe are recorded one after the other.
const lockStripes = 64

// RecordCallParams groups the collaborators of a RecordCallUseCase.
type RecordCallParams struct {
	Policy filing.Policy
	Loader scenario.Loader
	Mapper scenario.Mapper
	Writer ports.FileWriter
	// Cache, when set, is invalidated for every rewritten scenario file.
	Cache       *services.ScenarioCache
	FailOnError bool
	Logger      ports.Logger
}

// NewRecordCallUseCase creates a new use case.
func NewRecordCallUseCase(p RecordCallParams) *RecordCallUseCase {
	return &RecordCallUseCase{
		policy:      p.Policy,
		loader:      p.Loader,
		mapper:      p.Mapper,
		writer:      p.Writer,
		cache:       p.Cache,
		failOnError: p.FailOnError,
		logger:      p.Logger,
	}
}

// Execute appends rec to its scenario file and writes its body file.
// Failures are logged and only returned when the use case fails on error.
func (uc *RecordCallUseCase) Execute(ctx context.Context, rec CallRecord) (RecordResult, error) {
	res, err := uc.save(ctx, rec)
	if err != nil {
		uc.logger.Error("failed to record call", "url", rec.Request.URL(), "file", res.File, "error", err)
		if uc.failOnError {
			return res, err
		}
		return res, nil
	}
	uc.logger.Debug("call recorded", "url", rec.Request.URL(), "file", res.File, "index", res.Index, "body_file", res.BodyFile)
	return res, nil
}

func (uc *RecordCallUseCase) lock(path string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	mu := &uc.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (uc *RecordCallUseCase) save(ctx context.Context, rec CallRecord) (RecordResult, error) {
	file := uc.policy.Path(rec.Request)
	res := RecordResult{File: file, Index: -1}

	unlock := uc.lock(file)
	defer unlock()

	previous, err := uc.previous(ctx, file)
	if err != nil {
		return res, err
	}
	res.Index = len(previous)

	m := scenario.Matcher{Request: requestTemplate(rec.Request)}
	if rec.Err != nil {
		m.Error = scenario.NewNetworkError(rec.Err)
	} else if rec.Response != nil {
		m.Response = rec.Response.Clone()
		m.Response.Body = ""
		m.Response.BodyFile = nil
		if len(rec.Body) > 0 {
			mediaType := services.InferMediaType(rec.ContentType, rec.Body)
			m.Response.MediaType = mediaType
			name := filing.BaseName(rec.Request) + "_body_" + strconv.Itoa(res.Index) + services.ExtensionFor(mediaType)
			m.Response.BodyFile = &name
			res.BodyFile = services.BodyFilePath(file, name)
		}
	}

	all := make([]scenario.Matcher, 0, len(previous)+1)
	all = append(all, previous...)
	all = append(all, m)
	data, err := uc.mapper.Marshal(all)
	if err != nil {
		return res, fmt.Errorf("failed to encode %s: %w", file, err)
	}
	if err := uc.writer.WriteFile(ctx, file, data); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", file, err)
	}
	if uc.cache != nil {
		uc.cache.Invalidate(file)
	}

	if res.BodyFile != "" {
		if err := uc.writer.WriteFile(ctx, res.BodyFile, rec.Body); err != nil {
			return res, fmt.Errorf("failed to write body file %s: %w", res.BodyFile, err)
		}
	}
	return res, nil
}

// previous reads the entries already recorded in file. A missing file has
// none; an unreadable or malformed one is an error so it is not overwritten.
func (uc *RecordCallUseCase) previous(ctx context.Context, file string) ([]scenario.Matcher, error) {
	rc, err := uc.loader.Load(ctx, file)
	if errors.Is(err, scenario.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	matchers, err := uc.mapper.Unmarshal(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	return matchers, nil
}

// requestTemplate captures what a replayed request must match: its method,
// headers, query parameters and the literal body.
func requestTemplate(req *scenario.HTTPRequest) scenario.RequestTemplate {
	t := scenario.RequestTemplate{
		Method:  scenario.Ptr(req.Method),
		Headers: append([]scenario.NamedParameter(nil), req.Headers...),
		Params:  append([]scenario.NamedParameter(nil), req.Params...),
	}
	if req.Body != nil {
		t.Body = scenario.Ptr(regexp.QuoteMeta(*req.Body))
	}
	return t
}
