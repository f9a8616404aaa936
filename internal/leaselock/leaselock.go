package leaselock

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// A lease lock is one row per lock identity holding an expiry timestamp.
// There is no voluntary release: the lease simply expires, so a dead holder
// blocks peers for at most one lease window.

// Acquire tries to take the named lock for the given lease duration.
// It first renews an expired lease in place, then falls back to creating the
// row for the never-existed case. Losing both attempts means the lock is held
// elsewhere and the caller must skip this cycle.
func Acquire(db *sqlx.DB, lockID string, lease time.Duration) (bool, error) {
	now := time.Now()
	leaseUntil := now.Add(lease)

	// Renew an expired lease. The WHERE clause is the compare-and-swap.
	res, err := db.Exec(`
		UPDATE locks SET expires_at = $1
		WHERE id = $2 AND expires_at <= $3
	`, leaseUntil, lockID, now)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}

	// Lock row may never have existed; try to create it. A conflict means
	// someone else holds it.
	res, err = db.Exec(`
		INSERT INTO locks (id, expires_at) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, lockID, leaseUntil)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}

	return false, nil
}
