package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/uifuse/internal/adb"
	"github.com/dgallion1/uifuse/internal/config"
	"github.com/dgallion1/uifuse/internal/merge"
	"github.com/dgallion1/uifuse/internal/parser"
)

// Orchestrator manages the snapshot pipeline.
type Orchestrator struct {
	jobs      *JobStore
	snapshots *SnapshotStore
	queue     chan *Job
	device    *adb.Client
	merger    *merge.Merger
	geoParser *parser.GeometryParser
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Rules may override the
// built-in parse filters and class families.
func NewOrchestrator(cfg config.Config, rules config.Rules, device *adb.Client, log *slog.Logger) *Orchestrator {
	families := merge.DefaultClassFamilies()
	if len(rules.ClassFamilies) > 0 {
		families = merge.ClassFamilies(rules.ClassFamilies)
	}

	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		snapshots: NewSnapshotStore(cfg.MaxSnapshots),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		device:    device,
		merger:    merge.New(families, log),
		geoParser: &parser.GeometryParser{
			FilterIDs:     rules.FilterIDs,
			FilterClasses: rules.FilterClasses,
		},
		log: log,
		cfg: cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.device, o.snapshots, o.merger, o.geoParser, o.log)
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

// Snapshots returns the snapshot store for direct use by API handlers.
func (o *Orchestrator) Snapshots() *SnapshotStore {
	return o.snapshots
}

// Device returns the adb client for direct use by API handlers.
func (o *Orchestrator) Device() *adb.Client {
	return o.device
}
