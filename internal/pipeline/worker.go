package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/chunker"
	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/parser"
	"github.com/dgallion1/docsect/internal/sections"
	"github.com/dgallion1/docsect/internal/stats"
)

// SectionizerSource supplies the Sectionizer for the next document. Implementations
// may swap it at any time; a document keeps the instance it started with.
type SectionizerSource interface {
	Current() *sections.Sectionizer
}

// WorkerConfig holds per-worker processing settings.
type WorkerConfig struct {
	Chunk              chunker.Config
	MaxConcurrentStore int
	SegmentTimeout     time.Duration
	Parse              parser.Options
}

// Worker processes a single document job.
type Worker struct {
	sink    annostore.Sink
	rules   SectionizerSource
	stats   *stats.SegmentStats
	log     *slog.Logger
	cfg     WorkerConfig
	backoff func(attempt int) time.Duration
}

func NewWorker(sink annostore.Sink, rules SectionizerSource, st *stats.SegmentStats, log *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 1
	}
	return &Worker{
		sink:    sink,
		rules:   rules,
		stats:   st,
		log:     log,
		cfg:     cfg,
		backoff: Backoff,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.parse(job)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.releaseFileData()
	job.setContentHash(ContentHashHex([]byte(doc.Text)))

	if doc.Text == "" {
		log.Warn("no text extracted")
		job.AddError("no extractable text")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 1.5: Dedup check
	if !job.Force {
		existingDocID, err := w.findDuplicate(ctx, job.ContentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existingDocID != "" {
			log.Info("duplicate document, skipping", "existing_doc_id", existingDocID)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Sectioning
	job.SetStatus(StatusSectioning, "sectioning")
	secs, err := w.segment(ctx, doc)
	if err != nil {
		log.Error("sectioning failed", "error", err)
		job.AddError(fmt.Sprintf("sectioning: %s", err))
		job.SetStatus(StatusFailed, "sectioning")
		return
	}
	fallback := isFallback(secs)
	job.SetSections(len(secs), fallback)
	log.Info("sectioned document", "sections", len(secs), "fallback", fallback)

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.ChunkTree(sections.Tree(doc, secs), w.chunkConfig(job))
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	if _, err := DeleteDocument(ctx, w.sink, job.DocID); err != nil {
		log.Warn("clearing previous records failed", "error", err)
	}

	sectionsStored, sectionErrs := w.storeSections(ctx, job.DocID, doc.Text, secs)
	chunksStored, chunkErrs := w.storeChunks(ctx, job.DocID, chunks)
	job.AddStored(sectionsStored, chunksStored)

	hadErrors := false
	for _, err := range append(sectionErrs, chunkErrs...) {
		log.Error("store failed", "error", err)
		job.AddError(err.Error())
		hadErrors = true
	}
	log.Info("storage complete", "sections_stored", sectionsStored, "chunks_stored", chunksStored)

	if err := w.storeMeta(ctx, job, doc, secs, len(chunks)); err != nil {
		log.Error("meta write failed", "error", err)
		job.AddError(fmt.Sprintf("meta: %s", err))
		hadErrors = true
	}

	stored := sectionsStored + chunksStored
	switch {
	case hadErrors && stored > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "storing")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) parse(job *Job) (*doctree.Document, error) {
	p, err := parser.ForFile(job.Filename, w.cfg.Parse)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		return nil, err
	}
	doc.ID = job.DocID
	if job.Title != "" {
		doc.Title = job.Title
	}
	return doc, nil
}

// segment runs the current Sectionizer under the configured timeout and records stats.
func (w *Worker) segment(ctx context.Context, doc *doctree.Document) ([]sections.Section, error) {
	s := w.rules.Current()
	if s == nil {
		return nil, errors.New("no section rules loaded")
	}
	if w.cfg.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.SegmentTimeout)
		defer cancel()
	}

	start := time.Now()
	secs, err := s.SegmentDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if w.stats != nil {
		w.stats.Record(time.Since(start), len(secs), isFallback(secs))
	}
	return secs, nil
}

func (w *Worker) chunkConfig(job *Job) chunker.Config {
	cfg := w.cfg.Chunk
	if job.ChunkSize > 0 {
		cfg.ChunkSize = job.ChunkSize
	}
	if job.ChunkOverlap > 0 {
		cfg.ChunkOverlap = job.ChunkOverlap
	}
	return cfg
}

// storeSections writes the heading and body records of every section with bounded
// concurrency, linking each heading to its body.
func (w *Worker) storeSections(ctx context.Context, docID, text string, secs []sections.Section) (int, []error) {
	type storeResult struct {
		index int
		err   error
	}
	sem := make(chan struct{}, w.cfg.MaxConcurrentStore)
	results := make(chan storeResult, len(secs))

	for i, sec := range secs {
		sem <- struct{}{}
		go func(i int, sec sections.Section) {
			defer func() { <-sem }()
			results <- storeResult{index: i, err: w.storeSection(ctx, docID, i, text, sec)}
		}(i, sec)
	}

	stored := 0
	var errs []error
	for range secs {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Errorf("section %d: %w", r.index, r.err))
			continue
		}
		stored++
	}
	return stored, errs
}

func (w *Worker) storeSection(ctx context.Context, docID string, index int, text string, sec sections.Section) error {
	keys := make(map[sections.RecordKind]string, 2)
	for _, rec := range sections.Records(text, []sections.Section{sec}) {
		key := annostore.SectionKey(docID, index, string(rec.Kind))
		req := annostore.NodeRequest{
			Value: map[string]any{
				"index": index,
				"kind":  rec.Kind,
				"id":    rec.ID,
				"label": rec.Label,
				"begin": rec.Begin,
				"end":   rec.End,
				"text":  rec.Text,
			},
			Kind:   "section_" + string(rec.Kind),
			Source: "docsect:" + docID,
		}
		if err := w.put(ctx, key, req); err != nil {
			return err
		}
		keys[rec.Kind] = key
	}

	heading, hasHeading := keys[sections.KindHeading]
	body, hasBody := keys[sections.KindBody]
	if !hasHeading || !hasBody {
		return nil
	}
	summary := sec.Label
	if summary == "" {
		summary = sec.ID
	}
	return withRetry(ctx, w.backoff, func() error {
		return w.sink.PutLink(ctx, annostore.LinkRequest{From: heading, To: body, Weight: 1, Summary: summary})
	})
}

func (w *Worker) storeChunks(ctx context.Context, docID string, chunks []doctree.Chunk) (int, []error) {
	type storeResult struct {
		index int
		err   error
	}
	sem := make(chan struct{}, w.cfg.MaxConcurrentStore)
	results := make(chan storeResult, len(chunks))

	for _, chunk := range chunks {
		key := annostore.ChunkKey(docID, NewULID())
		sem <- struct{}{}
		go func(c doctree.Chunk) {
			defer func() { <-sem }()
			err := w.put(ctx, key, annostore.NodeRequest{
				Value: map[string]any{
					"index":      c.Index,
					"section_id": c.SectionID,
					"breadcrumb": c.Breadcrumb,
					"begin":      c.Begin,
					"end":        c.End,
					"text":       c.Text,
				},
				Kind:   "chunk",
				Source: "docsect:" + docID,
			})
			results <- storeResult{index: c.Index, err: err}
		}(chunk)
	}

	stored := 0
	var errs []error
	for range chunks {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", r.index, r.err))
			continue
		}
		stored++
	}
	return stored, errs
}

// storeMeta writes the document summary and its content-hash index entry.
func (w *Worker) storeMeta(ctx context.Context, job *Job, doc *doctree.Document, secs []sections.Section, chunks int) error {
	ids := make([]string, len(secs))
	for i, s := range secs {
		ids[i] = s.ID
	}
	source := "docsect:" + job.DocID

	err := w.put(ctx, annostore.MetaKey(job.DocID), annostore.NodeRequest{
		Value: map[string]any{
			"filename":     job.Filename,
			"title":        doc.Title,
			"content_hash": job.ContentHash,
			"sections":     len(secs),
			"section_ids":  ids,
			"fallback":     isFallback(secs),
			"chunks":       chunks,
			"created_at":   job.CreatedAt.Format(time.RFC3339),
		},
		Kind:   "meta",
		Source: source,
	})
	if err != nil {
		return err
	}

	return w.put(ctx, annostore.HashKey(job.ContentHash, job.DocID), annostore.NodeRequest{
		Value: map[string]any{
			"filename":   job.Filename,
			"created_at": job.CreatedAt.Format(time.RFC3339),
		},
		Kind:   "hash_index",
		Source: source,
	})
}

func (w *Worker) put(ctx context.Context, key string, req annostore.NodeRequest) error {
	return withRetry(ctx, w.backoff, func() error {
		return w.sink.PutNode(ctx, key, req)
	})
}

// findDuplicate returns the id of a document already stored with this content hash.
func (w *Worker) findDuplicate(ctx context.Context, contentHash string) (string, error) {
	children, err := w.sink.ListChildren(ctx, annostore.HashPrefix(contentHash), 1)
	if err != nil {
		return "", err
	}
	if len(children) == 0 {
		return "", nil
	}
	return annostore.LastSegment(children[0].Key), nil
}

func isFallback(secs []sections.Section) bool {
	return len(secs) == 1 && secs[0].IsFallback()
}
