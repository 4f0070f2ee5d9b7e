package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "SECTIONS_FILE", "SECTION_END_MARKERS", "WORKER_COUNT", "SEGMENT_TIMEOUT", "WATCH_SECTIONS"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.SectionsFile != "configs/sections.txt" {
		t.Errorf("expected default sections file, got %q", cfg.SectionsFile)
	}
	if len(cfg.SectionEndMarkers) != 0 {
		t.Errorf("expected no end markers, got %q", cfg.SectionEndMarkers)
	}
	if !cfg.WatchSections {
		t.Error("expected watching to default on")
	}
	if cfg.SegmentTimeout != 30*time.Second {
		t.Errorf("expected 30s segment timeout, got %s", cfg.SegmentTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECTION_END_MARKERS", "Electronically signed by, ,---")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("SEGMENT_TIMEOUT", "250ms")
	t.Setenv("WATCH_SECTIONS", "false")
	cfg := Load()

	if len(cfg.SectionEndMarkers) != 2 || cfg.SectionEndMarkers[0] != "Electronically signed by" || cfg.SectionEndMarkers[1] != "---" {
		t.Errorf("expected two trimmed markers, got %q", cfg.SectionEndMarkers)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	if cfg.SegmentTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.SegmentTimeout)
	}
	if cfg.WatchSections {
		t.Error("expected watching disabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{DocsectAPIKey: "k", SectionsFile: "s.txt"}, false},
		{"missing api key", Config{SectionsFile: "s.txt"}, true},
		{"missing sections file", Config{DocsectAPIKey: "k"}, true},
		{"index without key", Config{DocsectAPIKey: "k", SectionsFile: "s.txt", AnnostoreURL: "http://x"}, true},
		{"index with key", Config{DocsectAPIKey: "k", SectionsFile: "s.txt", AnnostoreURL: "http://x", AnnostoreAPIKey: "p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
