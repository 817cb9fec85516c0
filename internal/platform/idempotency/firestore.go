package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection   = "checkoutIdempotency"
	defaultTxAttempts   = 5
	defaultCleanupBatch = 100
)

// FirestoreOption customises the FirestoreStore behaviour.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection holding submission records.
func WithCollection(name string) FirestoreOption {
	return func(store *FirestoreStore) {
		if name != "" {
			store.collection = name
		}
	}
}

// WithMaxAttempts configures the transaction retry attempts.
func WithMaxAttempts(attempts int) FirestoreOption {
	return func(store *FirestoreStore) {
		if attempts > 0 {
			store.maxAttempts = attempts
		}
	}
}

// FirestoreStore implements Store on Firestore. Reservations run inside
// transactions so two concurrent submits with the same key cannot both win.
type FirestoreStore struct {
	client      *firestore.Client
	collection  string
	maxAttempts int
}

// NewFirestoreStore constructs a Firestore-backed idempotency store.
func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	store := &FirestoreStore{
		client:      client,
		collection:  defaultCollection,
		maxAttempts: defaultTxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Reserve claims the key for the given fingerprint and reports any stored
// response. Expired records are treated as free.
func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref := s.docRef(key)

	var result Reservation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				record := newPendingRecord(key, fingerprint, now, ttl)
				if err := tx.Set(ref, record); err != nil {
					return err
				}
				result = Reservation{State: ReservationStateNew, Record: record.toRecord()}
				return nil
			}
			return err
		}

		var record submissionRecord
		if err := snap.DataTo(&record); err != nil {
			return err
		}
		if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
			record = newPendingRecord(key, fingerprint, now, ttl)
			if err := tx.Set(ref, record); err != nil {
				return err
			}
			result = Reservation{State: ReservationStateNew, Record: record.toRecord()}
			return nil
		}

		if record.Fingerprint != fingerprint {
			return ErrFingerprintMismatch
		}

		if record.Status == string(StatusCompleted) {
			result = Reservation{State: ReservationStateCompleted, Record: record.toRecord()}
			return nil
		}

		result = Reservation{State: ReservationStatePending, Record: record.toRecord()}
		return nil
	}, firestore.MaxAttempts(s.txAttempts()))

	return result, err
}

// SaveResponse persists the completed HTTP response for later replay.
func (s *FirestoreStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref := s.docRef(key)

	headers := sanitizeHeaders(resp.Headers)
	var bodyCopy []byte
	if len(resp.Body) > 0 {
		bodyCopy = append([]byte(nil), resp.Body...)
	}

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var record submissionRecord
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			record = submissionRecord{
				Key:         key,
				Fingerprint: fingerprint,
				CreatedAt:   now,
			}
		} else {
			if err := snap.DataTo(&record); err != nil {
				return err
			}
			if record.Fingerprint != fingerprint {
				return ErrFingerprintMismatch
			}
			if record.CreatedAt.IsZero() {
				record.CreatedAt = now
			}
		}

		record.Status = string(StatusCompleted)
		record.ResponseStatus = resp.Status
		record.ResponseHeaders = headers
		record.ResponseBody = bodyCopy
		record.UpdatedAt = now
		record.ExpiresAt = now.Add(ttl)

		return tx.Set(ref, record)
	}, firestore.MaxAttempts(s.txAttempts()))
}

// CleanupExpired deletes expired records, at most limit per call. The sweep
// ticker in cmd/api calls this on an interval.
func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	if limit <= 0 {
		limit = defaultCleanupBatch
	}

	query := s.client.Collection(s.collection).Where("expiresAt", "<=", now).Limit(limit)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := s.client.Batch()
	for _, doc := range docs {
		batch.Delete(doc.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}

	return len(docs), nil
}

// Release frees the reservation so the caller may retry after a failure.
func (s *FirestoreStore) Release(ctx context.Context, key, fingerprint string) error {
	_, err := s.docRef(key).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (s *FirestoreStore) docRef(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(docID(key))
}

func (s *FirestoreStore) txAttempts() int {
	if s.maxAttempts <= 0 {
		return 1
	}
	return s.maxAttempts
}

func newPendingRecord(key, fingerprint string, now time.Time, ttl time.Duration) submissionRecord {
	return submissionRecord{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      string(StatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

type submissionRecord struct {
	Key             string              `firestore:"key"`
	Fingerprint     string              `firestore:"fingerprint"`
	Status          string              `firestore:"status"`
	ResponseStatus  int                 `firestore:"responseStatus"`
	ResponseHeaders map[string][]string `firestore:"responseHeaders"`
	ResponseBody    []byte              `firestore:"responseBody"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	ExpiresAt       time.Time           `firestore:"expiresAt"`
}

func (r submissionRecord) toRecord() Record {
	return Record{
		Key:             r.Key,
		Fingerprint:     r.Fingerprint,
		Status:          Status(r.Status),
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}
