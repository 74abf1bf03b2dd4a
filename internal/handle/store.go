// Package handle manages transient in-memory document artifacts. Every
// generated document is published under a logical preview slot; at most one
// handle is live per slot, and publishing revokes the slot's prior handle.
package handle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handle is an opaque, revocable reference to one generated document.
type Handle struct {
	ID          string
	Slot        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time

	generation uint64
}

// URL returns the transient download path for the handle.
func (h *Handle) URL() string {
	return "/documents/" + h.ID
}

// Store is the process-local registry of live handles. All methods are safe
// for concurrent use.
type Store struct {
	mu          sync.Mutex
	byID        map[string]*Handle
	bySlot      map[string]*Handle
	generations map[string]uint64
	logger      *zap.Logger
	now         func() time.Time
}

// NewStore creates an empty handle store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		byID:        map[string]*Handle{},
		bySlot:      map[string]*Handle{},
		generations: map[string]uint64{},
		logger:      logger,
		now:         time.Now,
	}
}

// Begin marks the start of a generation request for a slot and returns its
// generation token. A later Publish with a stale token is discarded, so a
// superseded request can never overwrite a newer result.
func (s *Store) Begin(slot string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[slot]++
	return s.generations[slot]
}

// Publish stores a document under the slot, revoking any prior handle for it
// first. It returns nil when the generation token has been superseded by a
// newer Begin for the same slot.
func (s *Store) Publish(slot string, generation uint64, data []byte, contentType string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.generations[slot]; generation != current {
		s.logger.Debug("discarding superseded publish",
			zap.String("slot", slot),
			zap.Uint64("generation", generation),
			zap.Uint64("current", current))
		return nil
	}

	if prev, ok := s.bySlot[slot]; ok {
		delete(s.byID, prev.ID)
	}

	h := &Handle{
		ID:          uuid.NewString(),
		Slot:        slot,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now(),
		generation:  generation,
	}
	s.byID[h.ID] = h
	s.bySlot[slot] = h
	return h
}

// PublishNow is Begin followed by Publish, for synchronous callers that hold
// no outstanding request for the slot.
func (s *Store) PublishNow(slot string, data []byte, contentType string) *Handle {
	return s.Publish(slot, s.Begin(slot), data, contentType)
}

// Get looks up a live handle by ID.
func (s *Store) Get(id string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byID[id]
	return h, ok
}

// Revoke releases a handle by ID. Returns false if it was not live.
func (s *Store) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	if cur, ok := s.bySlot[h.Slot]; ok && cur.ID == id {
		delete(s.bySlot, h.Slot)
	}
	return true
}

// RevokeSlot releases whatever handle is live for the slot, for view
// teardown. It is a no-op when the slot is empty.
func (s *Store) RevokeSlot(slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.bySlot[slot]; ok {
		delete(s.byID, h.ID)
		delete(s.bySlot, slot)
	}
}

// Live returns the number of live handles.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep revokes handles older than maxAge and returns how many were
// released. A swept handle means a call site lost its reference without
// revoking, which is a defect; each one is logged as such.
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	swept := 0
	for id, h := range s.byID {
		if h.CreatedAt.Before(cutoff) {
			s.logger.Warn("revoking leaked handle",
				zap.String("id", id),
				zap.String("slot", h.Slot),
				zap.Time("created_at", h.CreatedAt))
			delete(s.byID, id)
			if cur, ok := s.bySlot[h.Slot]; ok && cur.ID == id {
				delete(s.bySlot, h.Slot)
			}
			swept++
		}
	}
	return swept
}
