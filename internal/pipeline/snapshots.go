package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/uifuse/internal/merge"
	"github.com/dgallion1/uifuse/internal/uitree"
)

// Snapshot is one merged hierarchy with its capture metadata.
type Snapshot struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	DeviceSerial string    `json:"device_serial,omitempty"`
	DeviceModel  string    `json:"device_model,omitempty"`
	Activity     string    `json:"activity,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`

	Stats             merge.Stats `json:"stats"`
	GeometryAnchored  bool        `json:"geometry_anchored"`
	AttributeAnchored bool        `json:"attribute_anchored"`
	Warnings          []string    `json:"warnings,omitempty"`
	ContentHash       string      `json:"content_hash,omitempty"`

	Tree *uitree.Node `json:"tree"`
}

// SnapshotStore keeps merged snapshots in memory, newest last. When
// the store grows past its cap the oldest snapshot is evicted.
type SnapshotStore struct {
	mu     sync.Mutex
	byID   map[string]*Snapshot
	byHash map[string]string
	order  []string
	max    int
}

func NewSnapshotStore(max int) *SnapshotStore {
	if max <= 0 {
		max = 100
	}
	return &SnapshotStore{
		byID:   make(map[string]*Snapshot),
		byHash: make(map[string]string),
		max:    max,
	}
}

func (s *SnapshotStore) Put(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[snap.ID]; !exists {
		s.order = append(s.order, snap.ID)
	}
	s.byID[snap.ID] = snap
	if snap.ContentHash != "" {
		s.byHash[snap.ContentHash] = snap.ID
	}

	for len(s.order) > s.max {
		s.evictOldestLocked()
	}
}

func (s *SnapshotStore) Get(id string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// FindByHash returns the snapshot previously stored for a content
// hash, used to skip re-merging identical dumps.
func (s *SnapshotStore) FindByHash(hash string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil
	}
	return s.byID[id]
}

func (s *SnapshotStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	if snap.ContentHash != "" && s.byHash[snap.ContentHash] == id {
		delete(s.byHash, snap.ContentHash)
	}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns snapshots in insertion order.
func (s *SnapshotStore) List() []*Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *SnapshotStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *SnapshotStore) evictOldestLocked() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.order = s.order[1:]
	if snap, ok := s.byID[oldest]; ok {
		if snap.ContentHash != "" && s.byHash[snap.ContentHash] == oldest {
			delete(s.byHash, snap.ContentHash)
		}
		delete(s.byID, oldest)
	}
}
