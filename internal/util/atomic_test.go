package util

import (
	"testing"

	"github.com/spf13/afero"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := WriteFileAtomic(fs, "/out/nested/file.yml", []byte("first"), 0644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(fs, "/out/nested/file.yml", []byte("second"), 0600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := afero.ReadFile(fs, "/out/nested/file.yml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("expected overwritten content, got %q", data)
	}

	info, err := fs.Stat("/out/nested/file.yml")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	entries, err := afero.ReadDir(fs, "/out/nested")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
