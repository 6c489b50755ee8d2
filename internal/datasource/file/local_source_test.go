package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLocalOpen_ReadsFile(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "PRICE LIST.csv", "Description,Unit Price\nPLYWOOD,10\n")
	l := NewLocal(p)
	if l.Path() != p {
		t.Fatalf("Path = %q; want %q", l.Path(), p)
	}

	rc, err := l.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(got), "Description,Unit Price") {
		t.Fatalf("content = %q", got)
	}
}

func TestLocalOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := writeFile(t, dir, "BOM.csv", "Model\n")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		path string
		want error
	}{
		{"missing", context.Background(), filepath.Join(dir, "nope.csv"), os.ErrNotExist},
		{"canceled", canceled, present, context.Canceled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := NewLocal(tc.path).Open(tc.ctx)
			if rc != nil {
				_ = rc.Close()
				t.Fatalf("Open returned a reader with error %v", err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}

	_, err := NewLocal(filepath.Join(dir, "nope.csv")).Open(context.Background())
	if !strings.Contains(err.Error(), "nope.csv") {
		t.Fatalf("error %q does not name the path", err)
	}
}

func TestDirSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "ORDER BY WOOD.csv", "PI NUMBER\nPI-1\n")
	writeFile(t, root, "BOM.tsv", "Model\n")

	src, err := NewDir(root, "").Source("ORDER BY WOOD")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if want := filepath.Join(root, "ORDER BY WOOD.csv"); src.Path() != want {
		t.Fatalf("Path = %q; want %q", src.Path(), want)
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = rc.Close()

	tsv, err := NewDir(root, ".tsv").Source("BOM")
	if err != nil {
		t.Fatalf("Source with ext: %v", err)
	}
	if filepath.Ext(tsv.Path()) != ".tsv" {
		t.Fatalf("Path = %q; want .tsv", tsv.Path())
	}
}

func TestDirSource_RejectsEscapingNames(t *testing.T) {
	t.Parallel()

	d := NewDir(t.TempDir(), ".csv")
	for _, name := range []string{"", ".", "..", "../secrets", "sub/PRICE LIST", `sub\BOM`} {
		if _, err := d.Source(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Source(%q) err = %v; want ErrBadName", name, err)
		}
	}
}
