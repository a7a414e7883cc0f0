package artifact

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	a, err := New("case-042", map[string]any{"SeriesNumber": "300"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Filename != "case-042.json" {
		t.Fatalf("unexpected filename %q", a.Filename)
	}
	if a.MIMEType != "text/json" {
		t.Fatalf("unexpected mime type %q", a.MIMEType)
	}
	want := "{\n  \"SeriesNumber\": \"300\"\n}\n"
	if string(a.Data) != want {
		t.Fatalf("unexpected data %q", a.Data)
	}

	uri := a.DataURI()
	prefix := "data:text/json;charset=utf-8;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected data uri %q", uri)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil || string(decoded) != want {
		t.Fatalf("data uri payload mismatch: %q %v", decoded, err)
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"":             "meta.json",
		"  ":           "meta.json",
		"seg.json":     "seg.json",
		"../etc/pass":  ".._etc_pass.json",
		"..":           "meta.json",
		"liver lesion": "liver lesion.json",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Fatalf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	a, err := New("", []any{1, 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	path, err := a.WriteFile(dir)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "meta.json" {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(a.Data) {
		t.Fatalf("file content mismatch: %q %v", data, err)
	}
}
