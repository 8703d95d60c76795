package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
	"github.com/sophialabs/httpmocker/internal/testutil"
)

func TestScenarioCache_HitAndInvalidate(t *testing.T) {
	c := services.NewScenarioCache(4)
	var loads int32
	load := func() ([]scenario.Matcher, error) {
		atomic.AddInt32(&loads, 1)
		return []scenario.Matcher{{}}, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Get("a.json", load); err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("expected 1 load, got %d", n)
	}

	c.Invalidate("a.json")
	if _, err := c.Get("a.json", load); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&loads); n != 2 {
		t.Errorf("expected reload after invalidation, got %d loads", n)
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, got %d", c.Len())
	}
}

func TestScenarioCache_ErrorsNotCached(t *testing.T) {
	c := services.NewScenarioCache(0)
	fail := true
	load := func() ([]scenario.Matcher, error) {
		if fail {
			return nil, scenario.ErrNotFound
		}
		return []scenario.Matcher{{}}, nil
	}
	if _, err := c.Get("x", load); !errors.Is(err, scenario.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	fail = false
	got, err := c.Get("x", load)
	if err != nil || len(got) != 1 {
		t.Errorf("expected a fresh load, got %v, %v", got, err)
	}
}

func TestScenarioCache_Eviction(t *testing.T) {
	c := services.NewScenarioCache(2)
	load := func() ([]scenario.Matcher, error) { return nil, nil }
	for _, p := range []string{"a", "b", "c"} {
		_, _ = c.Get(p, load)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestScenarioCache_ConcurrentMissesShareLoad(t *testing.T) {
	c := services.NewScenarioCache(4)
	var loads int32
	release := make(chan struct{})
	load := func() ([]scenario.Matcher, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return []scenario.Matcher{{}}, nil
	}

	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := c.Get("same", load); err != nil {
				t.Error(err)
			}
		}()
	}
	started.Wait()
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&loads); n < 1 || n > 10 {
		t.Errorf("unexpected load count %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("expected the result to be cached, got %d entries", c.Len())
	}
}

func TestFileSource_UsesCache(t *testing.T) {
	fs := testutil.NewMemoryFS(map[string]string{"a.json": `[{"request": {}}]`})
	cache := services.NewScenarioCache(8)
	src := services.NewFileSource(fs, codec.NewJSONMapper(), cache)

	if _, err := src.Matchers(context.Background(), "a.json"); err != nil {
		t.Fatal(err)
	}
	_ = fs.WriteFile(context.Background(), "a.json", []byte(`[{"request": {}}, {"request": {}}]`))

	got, _ := src.Matchers(context.Background(), "a.json")
	if len(got) != 1 {
		t.Errorf("expected cached content, got %d entries", len(got))
	}

	cache.Invalidate("a.json")
	got, _ = src.Matchers(context.Background(), "a.json")
	if len(got) != 2 {
		t.Errorf("expected fresh content after invalidation, got %d entries", len(got))
	}
}

func TestFileSource_Errors(t *testing.T) {
	fs := testutil.NewMemoryFS(map[string]string{"bad.json": `nope`, "body.bin": "raw"})
	src := services.NewFileSource(fs, codec.NewJSONMapper(), nil)
	ctx := context.Background()

	if _, err := src.Matchers(ctx, "missing.json"); !errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := src.Matchers(ctx, "bad.json"); err == nil || errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("expected a decode error, got %v", err)
	}
	data, err := src.BodyFile(ctx, "body.bin")
	if err != nil || string(data) != "raw" {
		t.Errorf("unexpected body file: %q, %v", data, err)
	}
	if src.Mapper().Format() != codec.FormatJSON {
		t.Errorf("unexpected mapper %q", src.Mapper().Format())
	}
}
