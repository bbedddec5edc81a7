package idempotency

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conformadev/conforma/internal/db"
)

// ErrConflict indicates a key was reused with a different request body.
// Surfaced distinctly from generic errors so callers can detect a
// client-side key reuse bug.
var ErrConflict = errors.New("idempotency key reused with a different request")

// DefaultTTL is how long a cached response replays for.
const DefaultTTL = time.Hour

// Cache deduplicates job submissions keyed by caller-supplied idempotency
// keys. A key is bound to the hash of the first request it was seen with;
// the same key with a different hash is a hard conflict, never a silent
// overwrite. The unique constraint on the key column guarantees at most one
// winning write under concurrent submissions.
type Cache struct {
	db  *db.DB
	ttl time.Duration
}

// NewCache creates a Cache. ttl <= 0 uses DefaultTTL.
func NewCache(database *db.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{db: database, ttl: ttl}
}

// HashRequest derives the content hash binding a key to its request body.
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached response for key, if any. An entry older than
// the TTL is discarded. A live entry recorded under a different request hash
// returns ErrConflict.
func (c *Cache) Lookup(ctx context.Context, key, requestHash string) (response string, found bool, err error) {
	var storedHash, storedResponse string
	var createdAt time.Time
	row := c.db.QueryRowContext(ctx,
		"SELECT request_hash, response, created_at FROM idempotency_records WHERE key = ?", key)
	if err := row.Scan(&storedHash, &storedResponse, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up idempotency key: %w", err)
	}

	if time.Since(createdAt) > c.ttl {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM idempotency_records WHERE key = ?", key)
		return "", false, nil
	}

	if storedHash != requestHash {
		return "", false, ErrConflict
	}
	return storedResponse, true, nil
}

// Store records the response for a key. If another writer won the race for
// the same key, the stored hash decides: same hash is fine (duplicate
// submission), different hash is ErrConflict.
func (c *Cache) Store(ctx context.Context, key, requestHash, response string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO idempotency_records (key, request_hash, response) VALUES (?, ?, ?)",
		key, requestHash, response)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return fmt.Errorf("storing idempotency record: %w", err)
	}

	var storedHash string
	row := c.db.QueryRowContext(ctx,
		"SELECT request_hash FROM idempotency_records WHERE key = ?", key)
	if scanErr := row.Scan(&storedHash); scanErr != nil {
		return fmt.Errorf("re-reading idempotency record: %w", scanErr)
	}
	if storedHash != requestHash {
		return ErrConflict
	}
	return nil
}

// Prune removes expired records. Returns the number deleted.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).UTC().Format(time.DateTime)
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM idempotency_records WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning idempotency records: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
