package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

const sample = `{
  "registrations": [
    {"path": [{"name": "Degree", "url": "/r"}], "entries": [{"module": {"id": "M1", "name": "Intro", "url": "/m/1"}}, {}]}
  ],
  "modules": {"/m/1": {"credits": 5}}
}`

func compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatalf("brotli write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("brotli close: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	snap, err := Decode(strings.NewReader(sample), false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(snap.Registrations) != 1 || len(snap.Registrations[0].Entries) != 2 || *snap.Modules["/m/1"].Credits != 5 {
		t.Fatalf("snapshot: %+v", snap)
	}

	snap, err = Decode(bytes.NewReader(compress(t, sample)), true)
	if err != nil || len(snap.Registrations) != 1 {
		t.Fatalf("Decode brotli: %+v err=%v", snap, err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `registrations`,
		"empty path":   `{"registrations": [{"path": []}]}`,
		"module no id": `{"registrations": [{"path": [{"name": "R", "url": "/r"}], "entries": [{"module": {"url": "/m"}}]}]}`,
	}
	for name, raw := range cases {
		if _, err := Decode(strings.NewReader(raw), false); err == nil {
			t.Fatalf("%s: accepted", name)
		}
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "winter.json.br")
	if err := os.WriteFile(path, compress(t, sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := DecodeFile(path); err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
}

func TestDecodeResults(t *testing.T) {
	raw := `{"course_name": "M.Sc. Informatik", "root": {"name": "Informatik", "children": [{"name": "Thesis", "entries": [{"name": "Thesis", "passed": true}]}]},
	  "module_results": [{"activity_id": "M1", "year": 2024, "semester": "winter"}]}`
	in, err := DecodeResults(strings.NewReader(raw), false)
	if err != nil {
		t.Fatalf("DecodeResults: %v", err)
	}
	if in.CourseName != "M.Sc. Informatik" || len(in.Root.Children) != 1 || len(in.ModuleResults) != 1 {
		t.Fatalf("results: %+v", in)
	}
	if _, err := DecodeResults(strings.NewReader(`{"root": {"name": "x"}}`), false); err == nil {
		t.Fatalf("results without course name accepted")
	}
}

func TestDecodeResultsFileCourseName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	raw := `{"root": {"name": "Informatik"}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := DecodeResultsFile(path, ""); err == nil {
		t.Fatalf("results without course name accepted")
	}
	in, err := DecodeResultsFile(path, "M.Sc. Informatik (2023)")
	if err != nil {
		t.Fatalf("DecodeResultsFile: %v", err)
	}
	if in.CourseName != "M.Sc. Informatik (2023)" {
		t.Fatalf("course name: %q", in.CourseName)
	}
}
