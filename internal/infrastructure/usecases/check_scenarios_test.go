package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/usecases"
	"github.com/sophialabs/httpmocker/internal/testutil"
)

// listedFS lists every stored path, ignoring the extension filter.
type listedFS struct {
	*testutil.MemoryFS
	err error
}

func (l listedFS) List(context.Context, []string) ([]string, error) {
	if l.err != nil {
		return nil, l.err
	}
	var out []string
	for _, p := range l.Paths() {
		if _, err := codec.ForPath(p); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestCheckScenarios(t *testing.T) {
	fs := testutil.NewMemoryFS(map[string]string{
		"ok.json":        `[{"request": {}, "response": {"body-file": "ok_body_0.txt"}}]`,
		"ok_body_0.txt":  "x",
		"api/users.yaml": "- request:\n    method: GET\n  response:\n    code: 200\n",
		"broken.xml":     "<scenarios><case></scenarios>",
		"dangling.json":  `[{"request": {}, "response": {"body-file": "../gone.png"}}]`,
	})
	uc := usecases.NewCheckScenariosUseCase(listedFS{MemoryFS: fs}, fs, codec.ForPath, codec.Formats(), &testutil.NoopLogger{})

	report, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(report.Files) != 4 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	byFile := make(map[string]usecases.FileReport)
	for _, f := range report.Files {
		byFile[f.File] = f
	}
	if f := byFile["ok.json"]; f.Entries != 1 || f.Error != "" || len(f.MissingBodyFiles) != 0 {
		t.Errorf("unexpected ok.json report: %+v", f)
	}
	if f := byFile["api/users.yaml"]; f.Entries != 1 || f.Error != "" {
		t.Errorf("unexpected users.yaml report: %+v", f)
	}
	if f := byFile["broken.xml"]; f.Error == "" {
		t.Errorf("expected a decode error for broken.xml: %+v", f)
	}
	if f := byFile["dangling.json"]; len(f.MissingBodyFiles) != 1 || f.MissingBodyFiles[0] != "gone.png" {
		t.Errorf("expected a missing body file: %+v", f)
	}
}

func TestCheckScenarios_ListError(t *testing.T) {
	fs := testutil.NewMemoryFS(nil)
	uc := usecases.NewCheckScenariosUseCase(listedFS{MemoryFS: fs, err: errors.New("denied")}, fs, codec.ForPath, nil, &testutil.NoopLogger{})
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected an error")
	}
}

func TestConvertScenarios_RoundTrip(t *testing.T) {
	fs := testutil.NewMemoryFS(map[string]string{
		"a.json": `[{"request": {"method": "GET", "headers": {"Cookie": "a", "Cookie": "b"}}, "response": {"code": 201, "body": "hi"}}]`,
	})
	uc := usecases.NewConvertScenariosUseCase(fs, fs, codec.ForPath, &testutil.NoopLogger{})
	ctx := context.Background()

	for _, dst := range []string{"a.yaml", "a.xml"} {
		n, err := uc.Execute(ctx, "a.json", dst)
		if err != nil {
			t.Fatalf("convert to %s: %v", dst, err)
		}
		if n != 1 {
			t.Errorf("expected 1 entry, got %d", n)
		}
		data, _ := fs.File(dst)
		m, _ := codec.ForPath(dst)
		got, err := m.Unmarshal([]byte(data))
		if err != nil {
			t.Fatalf("converted %s does not decode: %v", dst, err)
		}
		if len(got[0].Request.Headers) != 2 || got[0].Response.Code != 201 || got[0].Response.Body != "hi" {
			t.Errorf("%s lost data: %+v", dst, got[0])
		}
	}

	if _, err := uc.Execute(ctx, "a.json", "a.txt"); err == nil {
		t.Error("expected an error for an unknown target format")
	}
	if _, err := uc.Execute(ctx, "missing.json", "b.yaml"); err == nil {
		t.Error("expected an error for a missing source")
	}
}
