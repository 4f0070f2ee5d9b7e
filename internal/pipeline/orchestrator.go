package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/chunker"
	"github.com/dgallion1/docsect/internal/config"
	"github.com/dgallion1/docsect/internal/parser"
	"github.com/dgallion1/docsect/internal/stats"
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	sink      annostore.Sink
	rules     SectionizerSource
	stats     *stats.SegmentStats
	log       *slog.Logger
	cfg       config.Config
	workerCfg WorkerConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, rules SectionizerSource, sink annostore.Sink, st *stats.SegmentStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		sink:  sink,
		rules: rules,
		stats: st,
		log:   log,
		cfg:   cfg,
		workerCfg: WorkerConfig{
			Chunk: chunker.Config{
				ChunkSize:    cfg.DefaultChunkSize,
				ChunkOverlap: cfg.DefaultChunkOverlap,
				MinChunk:     1,
			},
			MaxConcurrentStore: cfg.MaxConcurrentStore,
			SegmentTimeout:     cfg.SegmentTimeout,
			Parse:              parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		},
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.sink, o.rules, o.stats, o.log, o.workerCfg)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Sink returns the annotation sink for direct use by API handlers.
func (o *Orchestrator) Sink() annostore.Sink {
	return o.sink
}
