package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps submission records in a map. Tests and local development
// use it in place of Firestore.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore constructs an empty memory-backed idempotency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Reserve claims the key or reports the stored outcome for it.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := docID(key)

	record, ok := s.records[id]
	if !ok || (!record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt)) {
		record = Record{
			Key:         key,
			Fingerprint: fingerprint,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		s.records[id] = record
		return Reservation{State: ReservationStateNew, Record: record}, nil
	}

	if record.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}

	if record.Status == StatusCompleted {
		return Reservation{State: ReservationStateCompleted, Record: record}, nil
	}

	return Reservation{State: ReservationStatePending, Record: record}, nil
}

// SaveResponse stores the completed response so duplicates can replay it.
func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := docID(key)

	record, ok := s.records[id]
	if ok && record.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	if !ok {
		record = Record{Key: key, Fingerprint: fingerprint, CreatedAt: now}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeaders = sanitizeHeaders(resp.Headers)
	if len(resp.Body) > 0 {
		record.ResponseBody = append([]byte(nil), resp.Body...)
	} else {
		record.ResponseBody = nil
	}
	record.UpdatedAt = now
	record.ExpiresAt = now.Add(ttl)
	s.records[id] = record

	return nil
}

// CleanupExpired drops expired records, at most limit per call.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	removed := 0
	for id, record := range s.records {
		if record.ExpiresAt.IsZero() || now.Before(record.ExpiresAt) {
			continue
		}
		delete(s.records, id)
		removed++
		if removed >= limit {
			break
		}
	}

	return removed, nil
}

// Release frees the reservation so a later attempt may retry.
func (s *MemoryStore) Release(_ context.Context, key, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, docID(key))
	return nil
}