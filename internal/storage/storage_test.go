package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	d := NewDisk(root)

	name, path, size, err := d.Save(".wav", strings.NewReader("fake audio data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(name, ".wav") {
		t.Errorf("name = %q, want .wav suffix", name)
	}
	if size != int64(len("fake audio data")) {
		t.Errorf("size = %d, want %d", size, len("fake audio data"))
	}
	if path != d.Path(name) {
		t.Errorf("path = %q, Path(name) = %q", path, d.Path(name))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake audio data" {
		t.Errorf("content = %q, want %q", data, "fake audio data")
	}

	if err := d.Remove(name); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}
}

func TestSaveCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "nested", "uploads")
	d := NewDisk(root)

	if _, _, _, err := d.Save(".mp3", strings.NewReader("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not created: %v", err)
	}
}

func TestSaveUniqueNames(t *testing.T) {
	d := NewDisk(t.TempDir())

	first, _, _, err := d.Save(".wav", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, _, _, err := d.Save(".wav", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first == second {
		t.Errorf("two saves produced the same name %q", first)
	}
}

func TestRemoveMissingFile(t *testing.T) {
	d := NewDisk(t.TempDir())
	if err := d.Remove("nope.wav"); err != nil {
		t.Errorf("Remove missing file: %v, want nil", err)
	}
}
