package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Status represents the lifecycle state of a stored submission record.
type Status string

const (
	// DefaultTTL is how long completed submissions stay replayable. Buyers
	// retry within seconds, not days, but the window also absorbs payment
	// provider callbacks that arrive late.
	DefaultTTL = 24 * time.Hour
	// StatusPending marks a key that is reserved while the first request is
	// still in flight.
	StatusPending Status = "pending"
	// StatusCompleted marks a key whose response has been captured and can be
	// replayed to duplicates.
	StatusCompleted Status = "completed"
)

// ReservationState describes the outcome of attempting to reserve a key.
type ReservationState int

const (
	// ReservationStateNew means the key was free and the caller owns it now.
	ReservationStateNew ReservationState = iota
	// ReservationStateCompleted means a stored response exists and should be
	// replayed instead of re-running the handler.
	ReservationStateCompleted
	// ReservationStatePending means another request holds the key right now.
	ReservationStatePending
)

// Reservation is the result of reserving a key, carrying the stored record
// when one exists.
type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is the persisted submission outcome for one idempotency key.
type Record struct {
	Key             string
	Fingerprint     string
	Status          Status
	ResponseStatus  int
	ResponseHeaders map[string][]string
	ResponseBody    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Response is the HTTP response captured for replay to duplicate requests.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists key reservations and captured responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrFingerprintMismatch is returned when a key is reused for a request whose
// method, path, body, or caller differ from the original.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// docID derives the storage identifier from the scoped key. Hashing keeps
// arbitrary client-chosen keys safe to use as Firestore document names.
func docID(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sanitizeHeaders drops hop-by-hop and volatile headers so replays only carry
// what the handler actually produced.
func sanitizeHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}

	filtered := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if isVolatileHeader(canonical) {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		filtered[canonical] = copied
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func isVolatileHeader(name string) bool {
	switch strings.ToLower(name) {
	case "content-length", "date", "connection", "keep-alive", "proxy-authenticate", "proxy-authorization", "te", "trailers", "transfer-encoding", "upgrade":
		return true
	default:
		return false
	}
}

func headersFromRecord(values map[string][]string) http.Header {
	if len(values) == 0 {
		return http.Header{}
	}

	header := make(http.Header, len(values))
	for name, vals := range values {
		copied := make([]string, len(vals))
		copy(copied, vals)
		header[name] = copied
	}
	return header
}
