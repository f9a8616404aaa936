package matchmaking

import (
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type queueCandidate struct {
	TeamID    int64     `db:"team_id"`
	Wager     int64     `db:"wager"`
	CreatedAt time.Time `db:"created_at"`
}

// EnterQueue upserts the team's queue entry and scans the oldest waiters for
// the first opponent whose wager falls inside the tolerance band. First-fit
// by queue age, not best-fit by closeness. actorID may be 0 when the caller
// is not player-authenticated (maintenance paths).
func (s *Service) EnterQueue(teamID, wager, actorID int64) (*EnqueueResult, error) {
	if teamID <= 0 {
		return nil, errValidation("invalid_team_id", "teamId must be a positive id")
	}
	if wager < 1 {
		return nil, errValidation("invalid_wager", "wagerAmount must be >= 1")
	}

	var exists bool
	if err := s.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID); err != nil {
		return nil, errInternal("team lookup failed", err)
	}
	if !exists {
		return nil, errNotFound("team_not_found", "team not found")
	}

	inMatch, err := s.hasOpenMatch(teamID)
	if err != nil {
		return nil, errInternal("open match lookup failed", err)
	}
	if inMatch {
		return nil, errValidation("already_in_match", "team is already in a match")
	}

	// Upsert: refresh wager and submitter, keep the original enqueue time so
	// the tolerance window keeps widening.
	enteredBy := sql.NullInt64{Int64: actorID, Valid: actorID > 0}
	var enqueuedAt time.Time
	if err := s.db.Get(&enqueuedAt, `
		INSERT INTO queue_entries (team_id, wager, entered_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id) DO UPDATE SET wager = EXCLUDED.wager, entered_by = EXCLUDED.entered_by
		RETURNING created_at
	`, teamID, wager, enteredBy); err != nil {
		return nil, errInternal("queue upsert failed", err)
	}

	minutes := time.Since(enqueuedAt).Minutes()
	tol := tolerancePercent(minutes)
	rng := rangeByTolerance(wager, tol)

	var candidates []queueCandidate
	if err := s.db.Select(&candidates, `
		SELECT team_id, wager, created_at FROM queue_entries
		WHERE team_id <> $1
		ORDER BY created_at ASC
		LIMIT $2
	`, teamID, s.scanLimit); err != nil {
		return nil, errInternal("queue scan failed", err)
	}

	var opponent *queueCandidate
	for i := range candidates {
		if rng.Contains(candidates[i].Wager) {
			opponent = &candidates[i]
			break
		}
	}

	if opponent == nil {
		s.metrics.Queued.Add(1)
		s.log.WithFields(logrus.Fields{
			"team_id":   teamID,
			"wager":     wager,
			"tolerance": tol,
			"range_min": rng.Min,
			"range_max": rng.Max,
			"counters":  s.metrics.Snapshot(),
		}).Info("matchmaking: queued")
		return &EnqueueResult{Queued: true, TeamID: teamID, Wager: wager, Tolerance: tol, Range: &rng}, nil
	}

	match, err := s.pairWith(teamID, wager, opponent)
	if err != nil {
		return nil, AsError(err)
	}

	s.metrics.Matched.Add(1)
	s.log.WithFields(logrus.Fields{
		"match_id": match.MatchID,
		"teams":    match.Teams,
		"wager":    match.Wager,
		"counters": s.metrics.Snapshot(),
	}).Info("matchmaking: matched")

	return &EnqueueResult{Matched: true, Match: match}, nil
}

// pairWith creates the pending match and removes both queue entries in one
// transaction. The scan that chose the opponent ran outside it, so two
// instances may pair the same waiter; the loser's match dies on the
// "already in a match" accept rejection.
func (s *Service) pairWith(teamID, wager int64, opponent *queueCandidate) (*MatchView, error) {
	matchWager := wager
	if opponent.Wager < matchWager {
		matchWager = opponent.Wager
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, errInternal("begin pairing tx failed", err)
	}
	defer tx.Rollback()

	deadline := time.Now().Add(s.acceptTimeout)
	var matchID int64
	if err := tx.Get(&matchID, `
		INSERT INTO matches (team_a_id, team_b_id, wager, status, accept_deadline)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id
	`, teamID, opponent.TeamID, matchWager, deadline); err != nil {
		return nil, errInternal("match insert failed", err)
	}

	// Idempotent: a concurrent pairing may have deleted these already.
	if _, err := tx.Exec(`DELETE FROM queue_entries WHERE team_id IN ($1, $2)`, teamID, opponent.TeamID); err != nil {
		return nil, errInternal("queue entry delete failed", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errInternal("pairing commit failed", err)
	}

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, errInternal("match reload failed", err)
	}
	v := matchView(m)
	return &v, nil
}

// CancelQueue removes the team's queue entry. Idempotent; returns how many
// rows were removed (0 or 1).
func (s *Service) CancelQueue(teamID int64) (int64, error) {
	if teamID <= 0 {
		return 0, errValidation("invalid_team_id", "teamId must be a positive id")
	}
	res, err := s.db.Exec(`DELETE FROM queue_entries WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, errInternal("queue delete failed", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Status projects the team's open match if it has one, otherwise its queue
// entry with the currently effective tolerance band.
func (s *Service) Status(teamID int64) (*StatusResult, error) {
	if teamID <= 0 {
		return nil, errValidation("invalid_team_id", "teamId must be a positive id")
	}

	var m struct {
		ID int64 `db:"id"`
	}
	err := s.db.Get(&m, `
		SELECT id FROM matches
		WHERE (team_a_id = $1 OR team_b_id = $1) AND status IN (`+openMatchStates+`)
		ORDER BY created_at DESC
		LIMIT 1
	`, teamID)
	switch {
	case err == nil:
		match, err := s.getMatch(m.ID)
		if err != nil {
			return nil, errInternal("match reload failed", err)
		}
		v := matchView(match)
		return &StatusResult{Matched: true, Match: &v}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errInternal("match lookup failed", err)
	}

	var entry queueCandidate
	err = s.db.Get(&entry, `SELECT team_id, wager, created_at FROM queue_entries WHERE team_id = $1`, teamID)
	switch {
	case err == nil:
		minutes := time.Since(entry.CreatedAt).Minutes()
		tol := tolerancePercent(minutes)
		rng := rangeByTolerance(entry.Wager, tol)
		return &StatusResult{Queued: true, TeamID: teamID, Wager: entry.Wager, Tolerance: tol, Range: &rng}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errInternal("queue lookup failed", err)
	}

	return &StatusResult{}, nil
}

// StatusByMatch projects a match by id, regardless of its state.
func (s *Service) StatusByMatch(matchID int64) (*StatusResult, error) {
	if matchID <= 0 {
		return nil, errValidation("invalid_match_id", "matchId must be a positive id")
	}
	m, err := s.getMatch(matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("match_not_found", "match not found")
		}
		return nil, errInternal("match lookup failed", err)
	}
	v := matchView(m)
	return &StatusResult{Matched: true, Match: &v}, nil
}
