package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aci.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("a: 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	changed := make(chan string, 4)
	w.OnChange(func(p string) { changed <- p })
	w.StartAsync()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		t.Fatalf("callback fired for %s", p)
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("a: 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		if filepath.Base(p) != "aci.yaml" {
			t.Errorf("changed path = %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aci.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(WithDebounce(150 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.StartAsync()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callbacks = %d, want 1", n)
	}
}

func TestWatcher_WatchMissingDir(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Watch("/nonexistent/dir/aci.yaml"); err == nil {
		t.Error("Watch() on missing directory should fail")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	w.StartAsync()
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
