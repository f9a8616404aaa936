package matchmaking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rivalpit/backend/internal/leaselock"
)

const sweeperLockID = "match-timeout-sweeper"

// StartTimeoutSweeper runs the background reconciliation loop: every
// interval it tries to take the lease lock and, holding it, cancels pending
// matches whose accept deadline has passed. A tick that cannot get the lock
// is skipped entirely, since another instance is sweeping.
func (s *Service) StartTimeoutSweeper(ctx context.Context, interval, lease time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.WithFields(logrus.Fields{
		"interval": interval.String(),
		"lease":    lease.String(),
	}).Info("sweeper: started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweepExpiredMatches(lease)
		}
	}
}

type expiredMatch struct {
	ID      int64 `db:"id"`
	TeamAID int64 `db:"team_a_id"`
	TeamBID int64 `db:"team_b_id"`
	Wager   int64 `db:"wager"`
}

func (s *Service) sweepExpiredMatches(lease time.Duration) {
	acquired, err := leaselock.Acquire(s.db, sweeperLockID, lease)
	if err != nil {
		s.log.WithError(err).Error("sweeper: lock acquire failed")
		return
	}
	if !acquired {
		return
	}

	var expired []expiredMatch
	if err := s.db.Select(&expired, `
		SELECT id, team_a_id, team_b_id, wager FROM matches
		WHERE status = 'pending' AND accept_deadline IS NOT NULL AND accept_deadline <= NOW()
	`); err != nil {
		s.log.WithError(err).Error("sweeper: expired match query failed")
		return
	}

	// Failures are isolated per match so one bad record cannot halt the rest.
	for _, m := range expired {
		res, err := s.db.Exec(`
			UPDATE matches
			SET status = 'cancelled', cancel_reason = 'timeout', finished_at = NOW()
			WHERE id = $1 AND status = 'pending'
		`, m.ID)
		if err != nil {
			s.log.WithError(err).WithField("match_id", m.ID).Error("sweeper: timeout cancel failed")
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// CAS missed: an accept or another sweeper won the race.
			continue
		}

		s.metrics.TimedOut.Add(1)
		s.requeueIfIdle(m.TeamAID, m.Wager)
		s.requeueIfIdle(m.TeamBID, m.Wager)

		s.log.WithFields(logrus.Fields{
			"match_id": m.ID,
			"teams":    []int64{m.TeamAID, m.TeamBID},
			"counters": s.metrics.Snapshot(),
		}).Info("sweeper: match cancelled by timeout, teams re-queued where eligible")
	}
}

// requeueIfIdle puts a team back in the wait queue with the given wager,
// unless it is already in some other pending or active match. Best-effort:
// a failure here is logged, never fatal to the sweep.
func (s *Service) requeueIfIdle(teamID, wager int64) {
	inMatch, err := s.hasOpenMatch(teamID)
	if err != nil {
		s.log.WithError(err).WithField("team_id", teamID).Error("requeue: open match lookup failed")
		return
	}
	if inMatch {
		return
	}

	if _, err := s.db.Exec(`
		INSERT INTO queue_entries (team_id, wager)
		VALUES ($1, $2)
		ON CONFLICT (team_id) DO UPDATE SET wager = EXCLUDED.wager
	`, teamID, wager); err != nil {
		s.log.WithError(err).WithField("team_id", teamID).Error("requeue: queue upsert failed")
	}
}
