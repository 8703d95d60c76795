package httpmocker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/httpmocker"
	"github.com/sophialabs/httpmocker/internal/testutil"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

// newMocker builds a Mocker reading JSON scenarios mirrored under dir.
func newMocker(t *testing.T, dir string, mode httpmocker.Mode, edit func(*httpmocker.Config)) *httpmocker.Mocker {
	t.Helper()
	cfg := httpmocker.Config{
		Policies:   []httpmocker.FilingPolicy{httpmocker.MirrorPath{Format: httpmocker.FormatJSON}},
		Mapper:     httpmocker.JSONMapper(),
		RootFolder: dir,
		Mode:       mode,
		Clock:      &testutil.RecordingClock{},
	}
	if edit != nil {
		edit(&cfg)
	}
	m, err := httpmocker.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func get(t *testing.T, m *httpmocker.Mocker, url string) (*http.Response, string) {
	t.Helper()
	resp, err := (&http.Client{Transport: m}).Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, string(body)
}

func upstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_EnabledStaticScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "request.json", `[{"request": {"method": "GET"}, "response": {"code": 200, "body": "simple body"}}]`)
	m := newMocker(t, dir, httpmocker.Enabled, nil)

	resp, body := get(t, m, "http://example.com/request")
	if resp.StatusCode != 200 || body != "simple body" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestE2E_EnabledNoMatchIsNotFound(t *testing.T) {
	m := newMocker(t, t.TempDir(), httpmocker.Enabled, nil)

	resp, body := get(t, m, "http://example.com/missing")
	if resp.StatusCode != 404 || body != "Page not found" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if resp.Status != "404 Not Found" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestE2E_FirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api/items.json", `[
	  {"request": {"method": "GET"}, "response": {"body": "A"}},
	  {"request": {}, "response": {"body": "B"}}
	]`)
	m := newMocker(t, dir, httpmocker.Enabled, nil)

	for range 3 {
		if _, body := get(t, m, "http://example.com/api/items"); body != "A" {
			t.Fatalf("expected first entry, got %q", body)
		}
	}
}

func TestE2E_UnknownStatusReason(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "odd.json", `[{"request": {}, "response": {"code": 499}}]`)
	m := newMocker(t, dir, httpmocker.Enabled, nil)

	resp, _ := get(t, m, "http://example.com/odd")
	if resp.Status != "499 Unknown error code" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestE2E_ResponseDelay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slow.json", `[{"request": {}, "response": {"delay": 250}}]`)
	writeFile(t, dir, "fast.json", `[{"request": {}, "response": {}}]`)
	clk := &testutil.RecordingClock{}
	m := newMocker(t, dir, httpmocker.Enabled, func(c *httpmocker.Config) {
		c.Clock = clk
		c.DefaultDelay = 10 * time.Millisecond
	})

	get(t, m, "http://example.com/slow")
	get(t, m, "http://example.com/fast")
	sleeps := clk.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 250*time.Millisecond || sleeps[1] != 10*time.Millisecond {
		t.Errorf("sleeps = %v", sleeps)
	}
}

func TestE2E_DisabledPassesThrough(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.json", `[{"request": {}, "response": {"body": "mocked"}}]`)
	ts := upstream(t, func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "real") })
	m := newMocker(t, dir, httpmocker.Disabled, nil)

	if _, body := get(t, m, ts.URL+"/hello"); body != "real" {
		t.Errorf("body = %q", body)
	}
}

func TestE2E_MixedFallsBackToTransport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mocked.json", `[{"request": {}, "response": {"body": "mocked"}}]`)
	ts := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Real", "yes")
		w.WriteHeader(202)
		fmt.Fprintf(w, "real %s %s", r.URL.Path, body)
	})
	m := newMocker(t, dir, httpmocker.Mixed, nil)

	if _, body := get(t, m, ts.URL+"/mocked"); body != "mocked" {
		t.Errorf("body = %q", body)
	}

	resp, err := (&http.Client{Transport: m}).Post(ts.URL+"/other", "text/plain", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 202 || resp.Header.Get("X-Real") != "yes" || string(body) != "real /other payload" {
		t.Errorf("unexpected passthrough response: %d %q", resp.StatusCode, body)
	}
}

func TestE2E_RecordScenarioAndBodyFile(t *testing.T) {
	dir := t.TempDir()
	ts := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "body")
	})
	m := newMocker(t, dir, httpmocker.Record, nil)

	resp, body := get(t, m, ts.URL+"/record/request1")
	if resp.StatusCode != 200 || body != "body" {
		t.Fatalf("caller got %d %q", resp.StatusCode, body)
	}

	matchers, err := httpmocker.JSONMapper().Unmarshal([]byte(readFile(t, dir, "record/request1.json")))
	if err != nil {
		t.Fatal(err)
	}
	if len(matchers) != 1 {
		t.Fatalf("expected 1 matcher, got %d", len(matchers))
	}
	r := matchers[0].Response
	if r == nil || r.BodyFile == nil || *r.BodyFile != "request1_body_0.png" {
		t.Fatalf("unexpected response: %+v", r)
	}
	if r.MediaType != "image/png" {
		t.Errorf("MediaType = %q", r.MediaType)
	}
	if got := readFile(t, dir, "record/request1_body_0.png"); got != "body" {
		t.Errorf("body file = %q", got)
	}
}

func TestE2E_RecordAppends(t *testing.T) {
	dir := t.TempDir()
	ts := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprintf(w, `{"q":%q}`, r.URL.Query().Get("q"))
	})
	m := newMocker(t, dir, httpmocker.Record, nil)

	get(t, m, ts.URL+"/search?q=one")
	get(t, m, ts.URL+"/search?q=two")

	matchers, err := httpmocker.JSONMapper().Unmarshal([]byte(readFile(t, dir, "search.json")))
	if err != nil {
		t.Fatal(err)
	}
	if len(matchers) != 2 {
		t.Fatalf("expected 2 matchers, got %d", len(matchers))
	}
	for i, want := range []string{"one", "two"} {
		name := fmt.Sprintf("search_body_%d.json", i)
		if got := *matchers[i].Response.BodyFile; got != name {
			t.Errorf("entry %d body file = %q, want %q", i, got, name)
		}
		if got := readFile(t, dir, name); got != fmt.Sprintf(`{"q":%q}`, want) {
			t.Errorf("%s = %q", name, got)
		}
	}
}

func TestE2E_RecordThenReplay(t *testing.T) {
	dir := t.TempDir()
	ts := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(201)
		fmt.Fprintf(w, "created %s", r.URL.Query().Get("id"))
	})
	m := newMocker(t, dir, httpmocker.Record, nil)

	recorded, recordedBody := get(t, m, ts.URL+"/items?id=7")
	ts.Close()

	if err := m.SetMode(httpmocker.Enabled); err != nil {
		t.Fatal(err)
	}
	replayed, replayedBody := get(t, m, ts.URL+"/items?id=7")
	if replayed.StatusCode != recorded.StatusCode || replayedBody != recordedBody {
		t.Errorf("replay = %d %q, recorded %d %q", replayed.StatusCode, replayedBody, recorded.StatusCode, recordedBody)
	}

	other, _ := get(t, m, ts.URL+"/items?id=8")
	if other.StatusCode != 404 {
		t.Errorf("expected different params not to match, got %d", other.StatusCode)
	}
}

func TestE2E_RecordTransportError(t *testing.T) {
	dir := t.TempDir()
	failing := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	m := newMocker(t, dir, httpmocker.Record, func(c *httpmocker.Config) { c.Transport = failing })

	_, err := m.RoundTrip(httptest.NewRequest("GET", "http://example.com/broken", nil))
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("expected the transport error unchanged, got %v", err)
	}

	if err := m.SetMode(httpmocker.Enabled); err != nil {
		t.Fatal(err)
	}
	_, err = m.RoundTrip(httptest.NewRequest("GET", "http://example.com/broken", nil))
	var replayed *httpmocker.ReplayedError
	if !errors.As(err, &replayed) {
		t.Fatalf("expected a replayed error, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected the replayed error to unwrap to io.ErrUnexpectedEOF: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "broken_body_0.txt")); !os.IsNotExist(statErr) {
		t.Error("a failed call must not write a body file")
	}
}

func TestE2E_RecordingFailure(t *testing.T) {
	parent := t.TempDir()
	// A regular file where the root folder should be makes every write fail.
	root := filepath.Join(parent, "root")
	writeFile(t, parent, "root", "not a directory")
	ts := upstream(t, func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "live") })

	t.Run("swallowed", func(t *testing.T) {
		m := newMocker(t, root, httpmocker.Record, nil)
		if _, body := get(t, m, ts.URL+"/x"); body != "live" {
			t.Errorf("body = %q", body)
		}
	})
	t.Run("fail on error", func(t *testing.T) {
		m := newMocker(t, root, httpmocker.Record, func(c *httpmocker.Config) { c.FailOnError = true })
		if _, err := (&http.Client{Transport: m}).Get(ts.URL + "/x"); err == nil {
			t.Error("expected the recording error to be returned")
		}
	})
	t.Run("failed call with fail on error", func(t *testing.T) {
		failing := roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		})
		m := newMocker(t, root, httpmocker.Record, func(c *httpmocker.Config) {
			c.FailOnError = true
			c.Transport = failing
			c.TraceSize = 5
		})
		_, err := m.RoundTrip(httptest.NewRequest("GET", "http://example.com/broken", nil))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("expected the transport error to be kept, got %v", err)
		}
		if err == io.ErrUnexpectedEOF {
			t.Error("expected the recording error to be joined to the transport error")
		}
		entries := m.Trace(1)
		if len(entries) != 1 || entries[0].Error != err.Error() {
			t.Errorf("unexpected trace: %+v", entries)
		}
	})
}

func TestE2E_DynamicCallbacksConcurrent(t *testing.T) {
	callback := func(_ context.Context, req *httpmocker.HTTPRequest) (*httpmocker.ResponseDescriptor, error) {
		ids := req.ParamValues("id")
		if len(ids) == 0 {
			return nil, nil
		}
		return &httpmocker.ResponseDescriptor{Code: 200, MediaType: "text/plain", Body: "id " + ids[0]}, nil
	}
	m := newMocker(t, t.TempDir(), httpmocker.Enabled, func(c *httpmocker.Config) {
		c.Callbacks = []httpmocker.RequestCallback{callback}
	})
	client := &http.Client{Transport: m}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(fmt.Sprintf("http://example.com/dyn?id=%d", i))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if want := fmt.Sprintf("id %d", i); string(body) != want {
				errs <- fmt.Errorf("got %q, want %q", body, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestE2E_DynamicCallbackError(t *testing.T) {
	boom := errors.New("boom")
	m := newMocker(t, t.TempDir(), httpmocker.Mixed, func(c *httpmocker.Config) {
		c.Callbacks = []httpmocker.RequestCallback{
			func(context.Context, *httpmocker.HTTPRequest) (*httpmocker.ResponseDescriptor, error) {
				return nil, boom
			},
		}
	})
	_, err := m.RoundTrip(httptest.NewRequest("GET", "http://example.com/", nil))
	if !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestE2E_RecordModeValidation(t *testing.T) {
	t.Run("no root folder", func(t *testing.T) {
		_, err := httpmocker.New(httpmocker.Config{Mode: httpmocker.Record, Mapper: httpmocker.JSONMapper()})
		if !errors.Is(err, httpmocker.ErrNoRootFolder) {
			t.Errorf("expected ErrNoRootFolder, got %v", err)
		}
	})
	t.Run("no mapper", func(t *testing.T) {
		_, err := httpmocker.New(httpmocker.Config{Mode: httpmocker.Record, RootFolder: t.TempDir()})
		if !errors.Is(err, httpmocker.ErrNoMapper) {
			t.Errorf("expected ErrNoMapper, got %v", err)
		}
	})
	t.Run("set mode without recorder", func(t *testing.T) {
		mem := httpmocker.NewInMemory()
		m, err := httpmocker.New(httpmocker.Config{Policies: []httpmocker.FilingPolicy{mem}, Mode: httpmocker.Mixed})
		if err != nil {
			t.Fatal(err)
		}
		defer m.Close()
		if err := m.SetMode(httpmocker.Record); !errors.Is(err, httpmocker.ErrNoRecorder) {
			t.Errorf("expected ErrNoRecorder, got %v", err)
		}
		if m.Mode() != httpmocker.Mixed {
			t.Errorf("mode changed to %v", m.Mode())
		}
	})
	t.Run("invalid mode", func(t *testing.T) {
		_, err := httpmocker.New(httpmocker.Config{Mode: httpmocker.Mode(7)})
		if !errors.Is(err, httpmocker.ErrInvalidMode) {
			t.Errorf("expected ErrInvalidMode, got %v", err)
		}
	})
}

func TestE2E_InMemoryPolicy(t *testing.T) {
	mem := httpmocker.NewInMemory()
	mem.Add("http://example.com:80/memory", httpmocker.Matcher{
		Request:  httpmocker.RequestTemplate{Method: httpmocker.Ptr("GET")},
		Response: &httpmocker.ResponseDescriptor{Code: 200, MediaType: "text/plain", Body: "from memory"},
	})
	m, err := httpmocker.New(httpmocker.Config{Policies: []httpmocker.FilingPolicy{mem}, Mode: httpmocker.Enabled})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if _, body := get(t, m, "http://example.com/memory"); body != "from memory" {
		t.Errorf("body = %q", body)
	}
}

func TestE2E_Trace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "traced.json", `[{"request": {"method": "POST"}, "response": {}}]`)
	ts := upstream(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) })
	m := newMocker(t, dir, httpmocker.Mixed, func(c *httpmocker.Config) { c.TraceSize = 10 })

	get(t, m, ts.URL+"/traced")

	entries := m.Trace(10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Mode != "MIXED" || e.Source != "passthrough" || e.Code != 204 || e.Method != "GET" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if len(e.Candidates) != 1 || e.Candidates[0].Matched || e.Candidates[0].FailedField != "method" {
		t.Errorf("unexpected candidates: %+v", e.Candidates)
	}

	m.ResetTrace()
	if len(m.Trace(10)) != 0 {
		t.Error("expected an empty trace after reset")
	}
}

func TestE2E_RecordThenReplayWithoutPolicies(t *testing.T) {
	dir := t.TempDir()
	ts := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "body")
	})
	m, err := httpmocker.New(httpmocker.Config{
		Mapper:     httpmocker.JSONMapper(),
		RootFolder: dir,
		Mode:       httpmocker.Record,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	recorded, _ := get(t, m, ts.URL+"/record/request1")
	if recorded.StatusCode != 200 {
		t.Fatalf("record code = %d", recorded.StatusCode)
	}
	ts.Close()

	if err := m.SetMode(httpmocker.Enabled); err != nil {
		t.Fatal(err)
	}
	replayed, body := get(t, m, ts.URL+"/record/request1")
	if replayed.StatusCode != 200 || body != "body" {
		t.Errorf("replay = %d %q", replayed.StatusCode, body)
	}
	if ct := replayed.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}
