package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/chunker"
	"github.com/dgallion1/docsect/internal/sections"
	"github.com/dgallion1/docsect/internal/stats"
)

const histPlanNote = "HISTORY: pt well.\nPLAN: f/u in 2wk.\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticRules serves one Sectionizer for the life of a test.
type staticRules struct {
	s *sections.Sectionizer
}

func (r staticRules) Current() *sections.Sectionizer { return r.s }

func histPlanRules(t *testing.T) staticRules {
	t.Helper()
	table, warnings := sections.Compile([]sections.SectionRule{
		{ID: "HIST", Aliases: []string{"HISTORY"}, Label: "History"},
		{ID: "PLAN", Aliases: []string{"PLAN"}},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return staticRules{s: sections.New(table, nil)}
}

func newTestWorker(t *testing.T, sink annostore.Sink, rules SectionizerSource) (*Worker, *stats.SegmentStats) {
	t.Helper()
	st := stats.NewSegmentStats(time.Hour)
	w := NewWorker(sink, rules, st, testLogger(), WorkerConfig{
		Chunk:              chunker.DefaultConfig(),
		MaxConcurrentStore: 2,
		SegmentTimeout:     time.Second,
	})
	w.backoff = func(int) time.Duration { return 0 }
	return w, st
}

func nodeField(t *testing.T, sink annostore.Sink, key, field string) any {
	t.Helper()
	n, err := sink.GetNode(context.Background(), key)
	if err != nil || n == nil {
		t.Fatalf("expected node at %s, got %v, %v", key, n, err)
	}
	m, ok := n.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object value at %s, got %T", key, n.Value)
	}
	return m[field]
}

func TestWorker_ProcessStoresSectionsChunksAndMeta(t *testing.T) {
	sink := annostore.NewMemorySink()
	w, st := newTestWorker(t, sink, histPlanRules(t))

	job := NewJob("doc-a", "note.txt", "", []byte(histPlanNote))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
	p := snap.Progress
	if p.TotalSections != 2 || p.SectionsStored != 2 || p.Fallback {
		t.Errorf("expected 2 stored non-fallback sections, got %+v", p)
	}
	if p.TotalChunks != 2 || p.ChunksStored != 2 {
		t.Errorf("expected 2 stored chunks, got %+v", p)
	}

	if got := nodeField(t, sink, annostore.SectionKey("doc-a", 0, "heading"), "text"); got != "HISTORY:" {
		t.Errorf("expected heading text, got %v", got)
	}
	if got := nodeField(t, sink, annostore.SectionKey("doc-a", 0, "body"), "text"); got != "pt well." {
		t.Errorf("expected body text, got %v", got)
	}
	if got := nodeField(t, sink, annostore.SectionKey("doc-a", 0, "body"), "label"); got != "History" {
		t.Errorf("expected label History, got %v", got)
	}
	if got := nodeField(t, sink, annostore.SectionKey("doc-a", 1, "body"), "begin"); got != float64(24) {
		t.Errorf("expected PLAN body to begin at 24, got %v", got)
	}
	if got := nodeField(t, sink, annostore.MetaKey("doc-a"), "sections"); got != float64(2) {
		t.Errorf("expected meta sections=2, got %v", got)
	}
	if got := nodeField(t, sink, annostore.MetaKey("doc-a"), "title"); got != "note" {
		t.Errorf("expected meta title from filename, got %v", got)
	}
	if n, _ := sink.GetNode(context.Background(), annostore.HashKey(snap.ContentHash, "doc-a")); n == nil {
		t.Error("expected hash index entry")
	}

	links := sink.Links()
	if len(links) != 2 {
		t.Fatalf("expected heading->body link per section, got %d", len(links))
	}
	for _, l := range links {
		if annostore.LastSegment(l.From) != "heading" || annostore.LastSegment(l.To) != "body" {
			t.Errorf("expected heading -> body link, got %+v", l)
		}
	}

	if s := st.Snapshot(); s.Documents != 1 || s.Sections != 2 {
		t.Errorf("expected stats for 1 document with 2 sections, got %+v", s)
	}
}

func TestWorker_ProcessFallbackDocument(t *testing.T) {
	sink := annostore.NewMemorySink()
	w, st := newTestWorker(t, sink, histPlanRules(t))

	job := NewJob("doc-f", "plain.txt", "Plain", []byte("no headings in this note"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if !snap.Progress.Fallback || snap.Progress.TotalSections != 1 {
		t.Errorf("expected single fallback section, got %+v", snap.Progress)
	}
	if n, _ := sink.GetNode(context.Background(), annostore.SectionKey("doc-f", 0, "heading")); n != nil {
		t.Error("expected no heading record for the fallback section")
	}
	if got := nodeField(t, sink, annostore.SectionKey("doc-f", 0, "body"), "id"); got != sections.SimpleSegment {
		t.Errorf("expected fallback id, got %v", got)
	}
	if len(sink.Links()) != 0 {
		t.Errorf("expected no links, got %d", len(sink.Links()))
	}
	if st.Snapshot().Fallbacks != 1 {
		t.Error("expected fallback to be counted in stats")
	}
}

func TestWorker_ProcessWhitespaceOnlyIsFallback(t *testing.T) {
	sink := annostore.NewMemorySink()
	w, _ := newTestWorker(t, sink, histPlanRules(t))

	job := NewJob("doc-w", "blank.txt", "", []byte("  \n "))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if !snap.Progress.Fallback || snap.Progress.SectionsStored != 1 {
		t.Errorf("expected one stored fallback section, got %+v", snap.Progress)
	}
	if snap.Progress.TotalChunks != 0 {
		t.Errorf("expected no chunks for a blank body, got %d", snap.Progress.TotalChunks)
	}
	if got := nodeField(t, sink, annostore.SectionKey("doc-w", 0, "body"), "end"); got != float64(4) {
		t.Errorf("expected body to cover the whole text, got end %v", got)
	}
}

func TestWorker_ProcessDuplicateSkipped(t *testing.T) {
	sink := annostore.NewMemorySink()
	w, _ := newTestWorker(t, sink, histPlanRules(t))

	w.Process(context.Background(), NewJob("doc-a", "a.txt", "", []byte(histPlanNote)))

	dup := NewJob("doc-b", "b.txt", "", []byte(histPlanNote))
	w.Process(context.Background(), dup)
	if got := dup.Snapshot().Status; got != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %s", got)
	}

	forced := NewJob("doc-b", "b.txt", "", []byte(histPlanNote))
	forced.Force = true
	w.Process(context.Background(), forced)
	if got := forced.Snapshot().Status; got != StatusCompleted {
		t.Fatalf("expected forced re-ingest to complete, got %s", got)
	}
}

func TestWorker_ProcessReingestReplacesRecords(t *testing.T) {
	sink := annostore.NewMemorySink()
	w, _ := newTestWorker(t, sink, histPlanRules(t))
	ctx := context.Background()

	first := NewJob("doc-a", "a.txt", "", []byte(histPlanNote))
	w.Process(ctx, first)
	oldHash := first.Snapshot().ContentHash

	second := NewJob("doc-a", "a.txt", "", []byte("rewritten without headings"))
	w.Process(ctx, second)
	if got := second.Snapshot().Status; got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}

	if n, _ := sink.GetNode(ctx, annostore.SectionKey("doc-a", 1, "body")); n != nil {
		t.Error("expected stale section records to be removed")
	}
	if n, _ := sink.GetNode(ctx, annostore.HashKey(oldHash, "doc-a")); n != nil {
		t.Error("expected stale hash index entry to be removed")
	}
	nodes, err := StoredSections(ctx, sink, "doc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("expected 1 body record after re-ingest, got %d", len(nodes))
	}
}

func TestWorker_ProcessFailures(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		data      string
		rules     SectionizerSource
		wantPhase string
	}{
		{"unsupported format", "sheet.csv", "a,b", nil, "parsing"},
		{"empty text", "blank.txt", "", nil, "parsing"},
		{"no rules loaded", "note.txt", histPlanNote, staticRules{}, "sectioning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := tt.rules
			if rules == nil {
				rules = histPlanRules(t)
			}
			w, _ := newTestWorker(t, annostore.NewMemorySink(), rules)
			job := NewJob("doc", tt.filename, "", []byte(tt.data))
			w.Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != StatusFailed || snap.Phase != tt.wantPhase {
				t.Errorf("expected failed in %s, got %s in %s", tt.wantPhase, snap.Status, snap.Phase)
			}
			if len(snap.Progress.Errors) == 0 {
				t.Error("expected an error to be recorded")
			}
		})
	}
}

func TestWorker_ProcessCanceledDuringSectioning(t *testing.T) {
	w, _ := newTestWorker(t, annostore.NewMemorySink(), histPlanRules(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob("doc", "note.txt", "", []byte(histPlanNote))
	w.Process(ctx, job)

	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "sectioning" {
		t.Errorf("expected sectioning failure, got %s in %s", snap.Status, snap.Phase)
	}
}

// flakySink fails the first n PutNode calls with the given error.
type flakySink struct {
	*annostore.MemorySink
	mu    sync.Mutex
	fails int
	err   error
}

func (f *flakySink) PutNode(ctx context.Context, key string, req annostore.NodeRequest) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return f.err
	}
	f.mu.Unlock()
	return f.MemorySink.PutNode(ctx, key, req)
}

func TestWorker_ProcessRetriesTransientStoreErrors(t *testing.T) {
	sink := &flakySink{
		MemorySink: annostore.NewMemorySink(),
		fails:      2,
		err:        &annostore.RetryableError{StatusCode: 503, Message: "busy"},
	}
	w, _ := newTestWorker(t, sink, histPlanRules(t))
	w.cfg.MaxConcurrentStore = 1

	job := NewJob("doc-r", "note.txt", "", []byte(histPlanNote))
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Fatalf("expected retries to recover, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
}

func TestWorker_ProcessStoreFailureIsPartial(t *testing.T) {
	// One permanent failure: a single record is lost, the rest are stored.
	sink := &flakySink{
		MemorySink: annostore.NewMemorySink(),
		fails:      1,
		err:        context.DeadlineExceeded,
	}
	w, _ := newTestWorker(t, sink, histPlanRules(t))
	w.cfg.MaxConcurrentStore = 1

	job := NewJob("doc-p", "note.txt", "", []byte(histPlanNote))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_JobChunkOverrides(t *testing.T) {
	w, _ := newTestWorker(t, annostore.NewMemorySink(), histPlanRules(t))
	job := &Job{ChunkSize: 64, ChunkOverlap: 8}
	cfg := w.chunkConfig(job)
	if cfg.ChunkSize != 64 || cfg.ChunkOverlap != 8 {
		t.Errorf("expected job overrides, got %+v", cfg)
	}
	if cfg.MinChunk != chunker.DefaultConfig().MinChunk {
		t.Errorf("expected MinChunk from worker defaults, got %d", cfg.MinChunk)
	}
}
