package ruleset

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_ReloadSwapsSectionizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.txt")
	writeFile(t, path, "hpi,10164-2,HPI\n")

	w, err := NewWatcher(path, []string{"---"}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := w.Current()
	if first.Table().Len() != 1 {
		t.Fatalf("expected 1 rule, got %d", first.Table().Len())
	}
	if got := first.EndMarkers(); len(got) != 1 || got[0] != "---" {
		t.Errorf("expected extra marker to be applied, got %q", got)
	}

	writeFile(t, path, "hpi,10164-2,HPI\nplan,18776-5,Plan\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	second := w.Current()
	if second == first {
		t.Fatal("expected a new sectionizer after reload")
	}
	if second.Table().Len() != 2 {
		t.Errorf("expected 2 rules after reload, got %d", second.Table().Len())
	}
	// The old instance is untouched.
	if first.Table().Len() != 1 {
		t.Errorf("expected previous sectionizer to keep 1 rule, got %d", first.Table().Len())
	}
}

func TestWatcher_FailedReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.toml")
	writeFile(t, path, "[[section]]\nid = \"plan\"\naliases = [\"PLAN\"]\n")

	w, err := NewWatcher(path, nil, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := w.Current()

	writeFile(t, path, "[[section]\nbroken")
	if err := w.Reload(); err == nil {
		t.Fatal("expected reload error for malformed file")
	}
	if w.Current() != before {
		t.Error("expected previous sectionizer to remain active")
	}
}

func TestNewWatcher_MissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope.txt"), nil, discardLogger())
	if err == nil {
		t.Error("expected error for missing sections file")
	}
}
