package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/uifuse/internal/adb"
	"github.com/dgallion1/uifuse/internal/merge"
	"github.com/dgallion1/uifuse/internal/parser"
	"github.com/dgallion1/uifuse/internal/uitree"
)

// Worker processes a single snapshot job: capture, parse, merge, store.
type Worker struct {
	device    *adb.Client
	snapshots *SnapshotStore
	merger    *merge.Merger
	geoParser *parser.GeometryParser
	log       *slog.Logger
}

func NewWorker(device *adb.Client, snapshots *SnapshotStore, merger *merge.Merger, geoParser *parser.GeometryParser, log *slog.Logger) *Worker {
	return &Worker{
		device:    device,
		snapshots: snapshots,
		merger:    merger,
		geoParser: geoParser,
		log:       log,
	}
}

// Process runs the full snapshot pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source, "serial", job.DeviceSerial)

	geoDump, attrDump := job.Dumps()
	hadErrors := false

	// Phase 1: Capture. Upload jobs arrive with their dumps attached.
	if job.Source == SourceDevice {
		job.SetStatus(StatusCapturing, "capturing")
		geoDump, attrDump = w.capture(ctx, job, log, &hadErrors)
		job.SetDumps(geoDump, attrDump)
	}

	if len(geoDump) == 0 && len(attrDump) == 0 {
		log.Error("no dump available from either source")
		job.AddError("no dump available from either source")
		job.SetStatus(StatusFailed, "capturing")
		return
	}

	// Phase 1.5: Dedup on the raw dumps before any parse work.
	job.ContentHash = ContentHashHex(append(append([]byte{}, geoDump...), attrDump...))
	if existing := w.snapshots.FindByHash(job.ContentHash); existing != nil {
		log.Info("duplicate dumps, skipping", "existing_snapshot_id", existing.ID)
		job.SetSnapshotID(existing.ID)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Parse whatever we have. A dump that fails to parse
	// degrades the merge the same way a failed capture does.
	job.SetStatus(StatusParsing, "parsing")
	var geoTree, attrTree *uitree.Node

	if len(geoDump) > 0 {
		tree, err := w.geoParser.Parse(bytes.NewReader(geoDump))
		if err != nil {
			log.Warn("geometry parse failed", "error", err)
			job.AddError(fmt.Sprintf("geometry parse: %s", err))
			hadErrors = true
		} else {
			geoTree = tree
		}
	}
	if len(attrDump) > 0 {
		ap := &parser.AttributeParser{}
		tree, err := ap.Parse(bytes.NewReader(attrDump))
		if err != nil {
			log.Warn("attribute parse failed", "error", err)
			job.AddError(fmt.Sprintf("attribute parse: %s", err))
			hadErrors = true
		} else {
			attrTree = tree
		}
	}
	job.SetSourceNodes(uitree.Count(geoTree), uitree.Count(attrTree))

	if geoTree == nil && attrTree == nil {
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 3: Merge, or pass a lone source through unmatched.
	job.SetStatus(StatusMerging, "merging")
	var result *merge.Result
	var warnings []string

	switch {
	case geoTree != nil && attrTree != nil:
		r, err := w.merger.Merge(geoTree, attrTree)
		if err != nil {
			log.Error("merge failed", "error", err)
			job.AddError(fmt.Sprintf("merge: %s", err))
			job.SetStatus(StatusFailed, "merging")
			return
		}
		result = r
		if !r.GeometryAnchored {
			warnings = append(warnings, "no content anchor in geometry tree; merged the full tree")
		}
		if !r.AttributeAnchored {
			warnings = append(warnings, "no content anchor in attribute tree; matched against the full tree")
		}
	case attrTree != nil:
		result = merge.Passthrough(attrTree)
		warnings = append(warnings, "geometry source unavailable; attribute tree only")
	default:
		result = merge.Passthrough(geoTree)
		warnings = append(warnings, "attribute source unavailable; geometry tree only")
	}
	job.SetMatchStats(result.Stats)

	w.snapshots.Put(&Snapshot{
		ID:                job.SnapshotID,
		Source:            job.Source,
		DeviceSerial:      job.DeviceSerial,
		DeviceModel:       job.DeviceModel,
		Activity:          job.Activity,
		CapturedAt:        time.Now(),
		Stats:             result.Stats,
		GeometryAnchored:  result.GeometryAnchored,
		AttributeAnchored: result.AttributeAnchored,
		Warnings:          warnings,
		ContentHash:       job.ContentHash,
		Tree:              result.Tree,
	})
	log.Info("snapshot stored",
		"snapshot_id", job.SnapshotID,
		"matched", result.Stats.Matched,
		"match_rate", result.Stats.MatchRate)

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// capture pulls both dumps off the device concurrently. Each source
// fails independently so one dead dump degrades the merge instead of
// aborting the job.
func (w *Worker) capture(ctx context.Context, job *Job, log *slog.Logger, hadErrors *bool) (geometry, attribute []byte) {
	serial := job.DeviceSerial

	if model, err := w.device.Model(ctx, serial); err == nil {
		job.DeviceModel = model
	}

	var geoErr, attrErr error
	var g errgroup.Group
	g.Go(func() error {
		geometry, geoErr = w.captureGeometry(ctx, job)
		return geoErr
	})
	g.Go(func() error {
		attribute, attrErr = w.captureAttributes(ctx, serial, log)
		return attrErr
	})
	// Per-source errors are handled below; Wait only synchronizes.
	_ = g.Wait()

	if geoErr != nil {
		log.Warn("geometry capture failed", "error", geoErr)
		job.AddError(fmt.Sprintf("geometry capture: %s", geoErr))
		*hadErrors = true
	}
	if attrErr != nil {
		log.Warn("attribute capture failed", "error", attrErr)
		job.AddError(fmt.Sprintf("attribute capture: %s", attrErr))
		*hadErrors = true
	}
	return geometry, attribute
}

// captureGeometry resolves the foreground activity, then pulls the
// window manager's view-hierarchy section for it.
func (w *Worker) captureGeometry(ctx context.Context, job *Job) ([]byte, error) {
	activity, err := w.device.CurrentActivity(ctx, job.DeviceSerial)
	if err != nil {
		return nil, fmt.Errorf("resolve activity: %w", err)
	}
	job.SetActivity(activity)

	section, err := w.device.ViewHierarchy(ctx, job.DeviceSerial, adb.SimpleActivity(activity))
	if err != nil {
		return nil, err
	}
	return []byte(section), nil
}

// captureAttributes pulls the uiautomator XML, retrying when the dump
// tool reports itself busy.
func (w *Worker) captureAttributes(ctx context.Context, serial string, log *slog.Logger) ([]byte, error) {
	var data []byte
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		data, lastErr = w.device.UIAutomatorDump(ctx, serial)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable dump error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return data, nil
}
