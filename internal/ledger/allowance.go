package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Weekly allowance accrual. Anchored to ISO-week Mondays in UTC so repeated
// calls within the same week are no-ops: a player owed w whole weeks since
// their last accrual Monday is credited w * weekly_allowance in one shot and
// their accrual timestamp advances to the current Monday.

// MondayUTC returns 00:00 UTC of the Monday of t's ISO week.
func MondayUTC(t time.Time) time.Time {
	t = t.UTC()
	diff := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -diff)
}

// WeeksBetween returns the number of whole weeks from one Monday to another,
// never negative.
func WeeksBetween(from, to time.Time) int64 {
	w := int64(to.Sub(from) / (7 * 24 * time.Hour))
	if w < 0 {
		return 0
	}
	return w
}

type allowanceRow struct {
	ID              int64        `db:"id"`
	WeeklyAllowance int64        `db:"weekly_allowance"`
	LastAccrualAt   sql.NullTime `db:"last_accrual_at"`
	CreatedAt       time.Time    `db:"created_at"`
}

// ApplyWeeklyAllowance credits every listed player their owed allowance and
// normalizes last_accrual_at to the current Monday. Players with nothing owed
// still get their timestamp normalized so future calculations stay stable.
func ApplyWeeklyAllowance(tx *sqlx.Tx, playerIDs []int64, now time.Time) error {
	if len(playerIDs) == 0 {
		return nil
	}

	var rows []allowanceRow
	if err := tx.Select(&rows, `
		SELECT id, weekly_allowance, last_accrual_at, created_at FROM players
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(playerIDs)); err != nil {
		return fmt.Errorf("allowance lock failed: %w", err)
	}

	currentMonday := MondayUTC(now)
	for _, p := range rows {
		anchor := p.CreatedAt
		if p.LastAccrualAt.Valid {
			anchor = p.LastAccrualAt.Time
		}
		weeks := WeeksBetween(MondayUTC(anchor), currentMonday)

		if weeks > 0 {
			credit := weeks * p.WeeklyAllowance
			if _, err := tx.Exec(`
				UPDATE players
				SET free_balance = free_balance + $1, last_accrual_at = $2, updated_at = NOW()
				WHERE id = $3
			`, credit, currentMonday, p.ID); err != nil {
				return fmt.Errorf("allowance credit failed for player %d: %w", p.ID, err)
			}
		} else {
			normalized := currentMonday
			if p.LastAccrualAt.Valid {
				normalized = MondayUTC(p.LastAccrualAt.Time)
			}
			if _, err := tx.Exec(`
				UPDATE players SET last_accrual_at = $1, updated_at = NOW() WHERE id = $2
			`, normalized, p.ID); err != nil {
				return fmt.Errorf("allowance normalize failed for player %d: %w", p.ID, err)
			}
		}
	}

	return nil
}
