package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
	"github.com/sophialabs/httpmocker/internal/domain/match"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
	"github.com/sophialabs/httpmocker/internal/infrastructure/usecases"
	"github.com/sophialabs/httpmocker/internal/testutil"
)

func newRecorder(fs *testutil.MemoryFS, failOnError bool, cache *services.ScenarioCache) *usecases.RecordCallUseCase {
	return usecases.NewRecordCallUseCase(usecases.RecordCallParams{
		Policy:      filing.MirrorPath{Format: codec.FormatJSON},
		Loader:      fs,
		Mapper:      codec.NewJSONMapper(),
		Writer:      fs,
		Cache:       cache,
		FailOnError: failOnError,
		Logger:      &testutil.NoopLogger{},
	})
}

func okResponse(mediaType string) *scenario.ResponseDescriptor {
	return &scenario.ResponseDescriptor{
		Code:      200,
		MediaType: mediaType,
		Headers:   []scenario.NamedParameter{scenario.Param("Content-Type", mediaType)},
	}
}

func readMatchers(t *testing.T, fs *testutil.MemoryFS, path string) []scenario.Matcher {
	t.Helper()
	data, ok := fs.File(path)
	if !ok {
		t.Fatalf("expected %s to exist, have %v", path, fs.Paths())
	}
	matchers, err := codec.NewJSONMapper().Unmarshal([]byte(data))
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return matchers
}

func TestRecordCall_BodyFileWithExtension(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)

	res, err := uc.Execute(context.Background(), usecases.CallRecord{
		Request:     get("/record/request1"),
		Response:    okResponse("image/png"),
		Body:        []byte("body"),
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.File != "record/request1.json" || res.BodyFile != "record/request1_body_0.png" || res.Index != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	matchers := readMatchers(t, fs, "record/request1.json")
	if len(matchers) != 1 {
		t.Fatalf("expected 1 matcher, got %d", len(matchers))
	}
	resp := matchers[0].Response
	if resp == nil || resp.BodyFile == nil || *resp.BodyFile != "request1_body_0.png" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Code != 200 || resp.MediaType != "image/png" || resp.Body != "" {
		t.Errorf("unexpected response fields: %+v", resp)
	}
	if body, _ := fs.File("record/request1_body_0.png"); body != "body" {
		t.Errorf("unexpected body file content %q", body)
	}
}

func TestRecordCall_AppendsWithIncreasingIndex(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)
	ctx := context.Background()

	for i, body := range []string{"first", "second"} {
		req := get("/record/")
		req.Params = []scenario.NamedParameter{scenario.Param("n", fmt.Sprint(i))}
		if _, err := uc.Execute(ctx, usecases.CallRecord{
			Request:     req,
			Response:    okResponse("application/json; charset=utf-8"),
			Body:        []byte(body),
			ContentType: "application/json; charset=utf-8",
		}); err != nil {
			t.Fatal(err)
		}
	}

	matchers := readMatchers(t, fs, "record/index.json")
	if len(matchers) != 2 {
		t.Fatalf("expected 2 matchers, got %d", len(matchers))
	}
	for i, want := range []string{"index_body_0.json", "index_body_1.json"} {
		if got := *matchers[i].Response.BodyFile; got != want {
			t.Errorf("entry %d: expected body file %q, got %q", i, want, got)
		}
	}
	if b, _ := fs.File("record/index_body_0.json"); b != "first" {
		t.Errorf("first body overwritten: %q", b)
	}
	if b, _ := fs.File("record/index_body_1.json"); b != "second" {
		t.Errorf("unexpected second body %q", b)
	}
}

func TestRecordCall_UnknownMediaTypeAndEmptyBody(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)
	ctx := context.Background()

	if _, err := uc.Execute(ctx, usecases.CallRecord{
		Request:     get("/a"),
		Response:    okResponse("application/x-custom"),
		Body:        []byte("data"),
		ContentType: "application/x-custom",
	}); err != nil {
		t.Fatal(err)
	}
	res, err := uc.Execute(ctx, usecases.CallRecord{Request: get("/a"), Response: okResponse("text/plain")})
	if err != nil {
		t.Fatal(err)
	}
	if res.BodyFile != "" {
		t.Errorf("expected no body file for an empty body, got %q", res.BodyFile)
	}

	matchers := readMatchers(t, fs, "a.json")
	if *matchers[0].Response.BodyFile != "a_body_0.txt" {
		t.Errorf("expected .txt fallback, got %q", *matchers[0].Response.BodyFile)
	}
	if matchers[1].Response.BodyFile != nil {
		t.Errorf("expected no body file, got %q", *matchers[1].Response.BodyFile)
	}
	if got := fs.Paths(); len(got) != 2 {
		t.Errorf("expected scenario and one body file, got %v", got)
	}
}

func TestRecordCall_NetworkError(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)

	res, err := uc.Execute(context.Background(), usecases.CallRecord{Request: get("/down"), Err: io.ErrUnexpectedEOF, Body: []byte("ignored")})
	if err != nil {
		t.Fatal(err)
	}
	if res.BodyFile != "" {
		t.Errorf("expected no body file, got %q", res.BodyFile)
	}
	matchers := readMatchers(t, fs, "down.json")
	e := matchers[0].Error
	if matchers[0].Response != nil || e == nil || e.ExceptionType != "io.ErrUnexpectedEOF" {
		t.Fatalf("unexpected matcher: %+v", matchers[0])
	}
	if !errors.Is(e.Err(), io.ErrUnexpectedEOF) {
		t.Errorf("replayed error should unwrap to io.ErrUnexpectedEOF, got %v", e.Err())
	}
	if len(fs.Paths()) != 1 {
		t.Errorf("expected only the scenario file, got %v", fs.Paths())
	}
}

func TestRecordCall_RequestTemplateReplays(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)

	req := get("/search")
	req.Method = "POST"
	req.Headers = []scenario.NamedParameter{scenario.Param("Accept", "application/json")}
	req.Params = []scenario.NamedParameter{scenario.Param("q", "a+b")}
	req.Body = scenario.Ptr(`{"query": "(a|b)*"}`)

	if _, err := uc.Execute(context.Background(), usecases.CallRecord{Request: req, Response: okResponse("text/plain")}); err != nil {
		t.Fatal(err)
	}
	m := readMatchers(t, fs, "search.json")[0]
	if *m.Request.Method != "POST" || *m.Request.Body != regexp.QuoteMeta(*req.Body) {
		t.Errorf("unexpected template: %+v", m.Request)
	}
	if !match.NewEvaluator().Matches(&m.Request, req) {
		t.Error("recorded template should match the original request")
	}

	other := *req
	other.Body = scenario.Ptr(`{"query": "aaa"}`)
	if match.NewEvaluator().Matches(&m.Request, &other) {
		t.Error("recorded body must match literally")
	}
}

func TestRecordCall_Errors(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		writeErr    error
		failOnError bool
		wantErr     bool
	}{
		{"write error swallowed", nil, errors.New("disk full"), false, false},
		{"write error returned", nil, errors.New("disk full"), true, true},
		{"malformed file not overwritten", map[string]string{"x.json": "garbage"}, nil, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testutil.NewMemoryFS(tt.files)
			fs.WriteErr = tt.writeErr
			uc := newRecorder(fs, tt.failOnError, nil)
			_, err := uc.Execute(context.Background(), usecases.CallRecord{
				Request:  get("/x"),
				Response: okResponse("text/plain"),
				Body:     []byte("b"),
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
			if tt.files != nil {
				if data, _ := fs.File("x.json"); data != "garbage" {
					t.Errorf("existing file was overwritten: %q", data)
				}
			}
		})
	}
}

func TestRecordCall_InvalidatesCache(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	cache := services.NewScenarioCache(8)
	src := services.NewFileSource(fs, codec.NewJSONMapper(), cache)
	uc := newRecorder(fs, true, cache)
	ctx := context.Background()

	record := func() {
		if _, err := uc.Execute(ctx, usecases.CallRecord{Request: get("/c"), Response: okResponse("text/plain")}); err != nil {
			t.Fatal(err)
		}
	}
	record()
	if got, _ := src.Matchers(ctx, "c.json"); len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	record()
	if got, _ := src.Matchers(ctx, "c.json"); len(got) != 2 {
		t.Errorf("expected the cache to be invalidated, got %d entries", len(got))
	}
}

func TestRecordCall_ConcurrentSamePath(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), usecases.CallRecord{
				Request:     get("/same"),
				Response:    okResponse("text/plain"),
				Body:        []byte(fmt.Sprint(i)),
				ContentType: "text/plain",
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	matchers := readMatchers(t, fs, "same.json")
	if len(matchers) != n {
		t.Fatalf("expected %d entries, got %d", n, len(matchers))
	}
	seen := make(map[string]bool)
	for i, m := range matchers {
		want := fmt.Sprintf("same_body_%d.txt", i)
		if *m.Response.BodyFile != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, *m.Response.BodyFile)
		}
		body, ok := fs.File("same_body_" + fmt.Sprint(i) + ".txt")
		if !ok || seen[body] {
			t.Errorf("entry %d: missing or duplicated body %q", i, body)
		}
		seen[body] = true
	}
}

func TestRecordCall_ConcurrentManyPaths(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := newRecorder(fs, true, nil)

	// More paths than lock stripes, several calls each.
	const paths, calls = 100, 3
	var wg sync.WaitGroup
	for p := 0; p < paths; p++ {
		for c := 0; c < calls; c++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				_, err := uc.Execute(context.Background(), usecases.CallRecord{
					Request:     get(fmt.Sprintf("/p%d", p)),
					Response:    okResponse("text/plain"),
					Body:        []byte("x"),
					ContentType: "text/plain",
				})
				if err != nil {
					t.Error(err)
				}
			}(p)
		}
	}
	wg.Wait()

	for p := 0; p < paths; p++ {
		if n := len(readMatchers(t, fs, fmt.Sprintf("p%d.json", p))); n != calls {
			t.Errorf("p%d.json: expected %d entries, got %d", p, calls, n)
		}
	}
}
