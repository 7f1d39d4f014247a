package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/uifuse/internal/merge"
)

// JobStatus represents the state of a snapshot job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusCapturing  JobStatus = "capturing"
	StatusParsing    JobStatus = "parsing"
	StatusMerging    JobStatus = "merging"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job source modes.
const (
	SourceDevice = "device"
	SourceUpload = "upload"
)

// Job tracks the state of a single snapshot capture and merge.
type Job struct {
	mu sync.Mutex

	ID         string `json:"job_id"`
	SnapshotID string `json:"snapshot_id"`

	Source       string `json:"source"`
	DeviceSerial string `json:"device_serial,omitempty"`
	DeviceModel  string `json:"device_model,omitempty"`
	Activity     string `json:"activity,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	geometryDump  []byte
	attributeDump []byte
	errors        []string
}

// Progress tracks node counts through the merge.
type Progress struct {
	GeometryNodes  int      `json:"geometry_nodes"`
	AttributeNodes int      `json:"attribute_nodes"`
	Matched        int      `json:"matched"`
	Unmatched      int      `json:"unmatched"`
	MatchRate      string   `json:"match_rate,omitempty"`
	Errors         []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetActivity records the foreground activity resolved during capture.
func (j *Job) SetActivity(activity string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Activity = activity
	j.UpdatedAt = time.Now()
}

// SetSourceNodes records how many nodes each parsed dump produced.
func (j *Job) SetSourceNodes(geometry, attribute int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.GeometryNodes = geometry
	j.Progress.AttributeNodes = attribute
	j.UpdatedAt = time.Now()
}

// SetMatchStats records the merge outcome.
func (j *Job) SetMatchStats(stats merge.Stats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Matched = stats.Matched
	j.Progress.Unmatched = stats.Unmatched
	j.Progress.MatchRate = stats.MatchRate
	j.UpdatedAt = time.Now()
}

// SetSnapshotID points the job at its stored result.
func (j *Job) SetSnapshotID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SnapshotID = id
	j.UpdatedAt = time.Now()
}

// SetContentHash records the dedup hash of the raw dumps.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// SetDumps sets the raw dump bytes for upload jobs.
func (j *Job) SetDumps(geometry, attribute []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.geometryDump = geometry
	j.attributeDump = attribute
}

// Dumps returns the raw dump bytes.
func (j *Job) Dumps() (geometry, attribute []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.geometryDump, j.attributeDump
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
	Source       string    `json:"source"`
	DeviceSerial string    `json:"device_serial,omitempty"`
	Activity     string    `json:"activity,omitempty"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	Progress     Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:           j.ID,
		SnapshotID:   j.SnapshotID,
		Source:       j.Source,
		DeviceSerial: j.DeviceSerial,
		Activity:     j.Activity,
		Status:       j.Status,
		Phase:        j.Phase,
		Progress: Progress{
			GeometryNodes:  j.Progress.GeometryNodes,
			AttributeNodes: j.Progress.AttributeNodes,
			Matched:        j.Progress.Matched,
			Unmatched:      j.Progress.Unmatched,
			MatchRate:      j.Progress.MatchRate,
			Errors:         errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
