package matchmaking

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rivalpit/backend/internal/ledger"
	"github.com/rivalpit/backend/internal/models"
)

// Accept records a team's acceptance of a pending match. Re-accepting is a
// no-op acknowledgement. When the accept deadline has already passed the
// match is cancelled on the spot and both teams are sent back to the queue.
// Once both teams are in the accepted set the escrow transaction runs and
// the match goes active.
func (s *Service) Accept(matchID, teamID int64) (*AcceptResult, error) {
	if matchID <= 0 || teamID <= 0 {
		return nil, errValidation("invalid_id", "matchId and teamId must be positive ids")
	}

	m, err := s.getMatch(matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("match_not_found", "match not found or not open for accept")
		}
		return nil, errInternal("match lookup failed", err)
	}
	if !m.HasTeam(teamID) || (m.Status != models.MatchPending && m.Status != models.MatchActive) {
		return nil, errNotFound("match_not_found", "match not found or not open for accept")
	}

	// Lazy deadline check: a pending match past its deadline cancels now
	// instead of accepting.
	if m.Status == models.MatchPending && m.AcceptDeadline.Valid && time.Now().After(m.AcceptDeadline.Time) {
		return s.cancelTimedOut(m)
	}

	// Idempotent set-membership: accepting twice changes nothing.
	if _, err := s.db.Exec(`
		UPDATE matches SET
			team_a_accepted = team_a_accepted OR (team_a_id = $2),
			team_b_accepted = team_b_accepted OR (team_b_id = $2)
		WHERE id = $1 AND status IN (`+openMatchStates+`)
	`, m.ID, teamID); err != nil {
		return nil, errInternal("accept update failed", err)
	}

	m, err = s.getMatch(matchID)
	if err != nil {
		return nil, errInternal("match reload failed", err)
	}

	if m.TeamAAccepted && m.TeamBAccepted && m.Status == models.MatchPending {
		if err := s.runEscrow(m); err != nil {
			return nil, AsError(err)
		}
		m, err = s.getMatch(matchID)
		if err != nil {
			return nil, errInternal("match reload failed", err)
		}
		s.metrics.Started.Add(1)
		s.log.WithFields(logrus.Fields{
			"match_id": m.ID,
			"teams":    []int64{m.TeamAID, m.TeamBID},
			"wager":    m.Wager,
			"per_head": m.PerHead,
		}).Info("matchmaking: escrow complete, match active")
	}

	return &AcceptResult{Match: matchView(m)}, nil
}

// cancelTimedOut performs the lazy-timeout path of Accept: CAS the match to
// cancelled and re-queue both teams if eligible. If the CAS misses the
// sweeper got there first, which is the same outcome.
func (s *Service) cancelTimedOut(m *models.Match) (*AcceptResult, error) {
	res, err := s.db.Exec(`
		UPDATE matches
		SET status = 'cancelled', cancel_reason = 'timeout', finished_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, m.ID)
	if err != nil {
		return nil, errInternal("timeout cancel failed", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.metrics.TimedOut.Add(1)
		s.requeueIfIdle(m.TeamAID, m.Wager)
		s.requeueIfIdle(m.TeamBID, m.Wager)
	}

	m, err = s.getMatch(m.ID)
	if err != nil {
		return nil, errInternal("match reload failed", err)
	}
	return &AcceptResult{Cancelled: true, Match: matchView(m)}, nil
}

// runEscrow executes the escrow transaction: roster resolution, weekly
// allowance accrual, balance verification, the free->frozen shift and the
// roster snapshot, all of it atomic. Any failure rolls the whole thing back.
func (s *Service) runEscrow(m *models.Match) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return errInternal("begin escrow tx failed", err)
	}
	defer tx.Rollback()

	// Re-read under lock; only the transaction that still sees 'pending'
	// performs the escrow.
	var cur models.Match
	if err := tx.Get(&cur, `SELECT * FROM matches WHERE id = $1 FOR UPDATE`, m.ID); err != nil {
		return errInternal("escrow match read failed", err)
	}
	if cur.Status != models.MatchPending {
		return nil
	}

	teamAPlayers, err := s.rosters.PlayerIDs(tx, cur.TeamAID)
	if err != nil {
		return errInternal("roster resolve failed", err)
	}
	teamBPlayers, err := s.rosters.PlayerIDs(tx, cur.TeamBID)
	if err != nil {
		return errInternal("roster resolve failed", err)
	}

	if len(teamAPlayers) > 0 && len(teamBPlayers) > 0 {
		all := append(append([]int64{}, teamAPlayers...), teamBPlayers...)
		if err := ledger.ApplyWeeklyAllowance(tx, all, time.Now()); err != nil {
			return errInternal("allowance accrual failed", err)
		}

		share, err := ledger.EscrowPlayers(tx, cur.TeamAID, cur.TeamBID, teamAPlayers, teamBPlayers, cur.Wager)
		if err != nil {
			return mapLedgerError(err)
		}

		for _, pid := range teamAPlayers {
			if _, err := tx.Exec(`INSERT INTO match_players (match_id, team_id, player_id) VALUES ($1, $2, $3)`, cur.ID, cur.TeamAID, pid); err != nil {
				return errInternal("roster snapshot failed", err)
			}
		}
		for _, pid := range teamBPlayers {
			if _, err := tx.Exec(`INSERT INTO match_players (match_id, team_id, player_id) VALUES ($1, $2, $3)`, cur.ID, cur.TeamBID, pid); err != nil {
				return errInternal("roster snapshot failed", err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE matches
			SET status = 'active', per_head = $2, started_at = NOW(), accept_deadline = NULL
			WHERE id = $1
		`, cur.ID, share); err != nil {
			return errInternal("match activate failed", err)
		}
	} else {
		// Team-wallet mode: either roster is empty, escrow at team level.
		if err := ledger.EscrowTeams(tx, cur.TeamAID, cur.TeamBID, cur.Wager); err != nil {
			return mapLedgerError(err)
		}
		if _, err := tx.Exec(`
			UPDATE matches
			SET status = 'active', started_at = NOW(), accept_deadline = NULL
			WHERE id = $1
		`, cur.ID); err != nil {
			return errInternal("match activate failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errInternal("escrow commit failed", err)
	}
	return nil
}

// Decline cancels a pending match on behalf of one of its teams. No
// automatic re-queue: the decliner chose to walk away.
func (s *Service) Decline(matchID, teamID int64) (*MatchView, error) {
	if matchID <= 0 || teamID <= 0 {
		return nil, errValidation("invalid_id", "matchId and teamId must be positive ids")
	}

	res, err := s.db.Exec(`
		UPDATE matches
		SET status = 'cancelled', cancel_reason = $2, finished_at = NOW()
		WHERE id = $1 AND status = 'pending' AND (team_a_id = $3 OR team_b_id = $3)
	`, matchID, fmt.Sprintf("declined_by_team_%d", teamID), teamID)
	if err != nil {
		return nil, errInternal("decline failed", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		m, err := s.getMatch(matchID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("match_not_found", "match not found")
		}
		if err != nil {
			return nil, errInternal("match lookup failed", err)
		}
		if !m.HasTeam(teamID) {
			return nil, errValidation("not_in_match", "team is not part of this match")
		}
		return nil, errConflict("match_not_pending", "match is no longer pending", 409)
	}

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, errInternal("match reload failed", err)
	}
	v := matchView(m)
	return &v, nil
}

// Finish settles an active match: payout to the winner, frozen balances
// released, terminal state recorded. Replays on a finished match return an
// idempotent already-finished payload with no balance movement.
func (s *Service) Finish(matchID, winnerTeamID int64, score string) (*FinishResult, error) {
	if matchID <= 0 || winnerTeamID <= 0 {
		return nil, errValidation("invalid_id", "matchId and winnerTeamId must be positive ids")
	}

	m, err := s.getMatch(matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("match_not_found", "match not found")
		}
		return nil, errInternal("match lookup failed", err)
	}
	if !m.HasTeam(winnerTeamID) {
		return nil, errValidation("winner_not_in_match", "winnerTeamId does not belong to this match")
	}
	switch m.Status {
	case models.MatchFinished:
		return &FinishResult{AlreadyFinished: true, Match: matchView(m)}, nil
	case models.MatchPending:
		return nil, errConflict("match_not_started", "match has not started yet", 409)
	case models.MatchCancelled:
		return nil, errConflict("match_cancelled", "match was cancelled", 409)
	}

	already, err := s.runPayout(m, winnerTeamID, score)
	if err != nil {
		return nil, AsError(err)
	}

	m, err = s.getMatch(matchID)
	if err != nil {
		return nil, errInternal("match reload failed", err)
	}
	if already {
		return &FinishResult{AlreadyFinished: true, Match: matchView(m)}, nil
	}

	s.metrics.Finished.Add(1)
	s.log.WithFields(logrus.Fields{
		"match_id": m.ID,
		"winner":   winnerTeamID,
		"wager":    m.Wager,
		"counters": s.metrics.Snapshot(),
	}).Info("matchmaking: match finished")

	return &FinishResult{Match: matchView(m)}, nil
}

// runPayout settles inside a transaction, re-reading the match under lock so
// concurrent finishers serialize and only one pays out.
func (s *Service) runPayout(m *models.Match, winnerTeamID int64, score string) (alreadyFinished bool, err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, errInternal("begin payout tx failed", err)
	}
	defer tx.Rollback()

	var cur models.Match
	if err := tx.Get(&cur, `SELECT * FROM matches WHERE id = $1 FOR UPDATE`, m.ID); err != nil {
		return false, errInternal("payout match read failed", err)
	}
	if cur.Status == models.MatchFinished {
		return true, nil
	}
	if cur.Status != models.MatchActive {
		return false, errConflict("match_not_active", "match is not active", 409)
	}

	var snapshot []models.MatchPlayer
	if err := tx.Select(&snapshot, `
		SELECT match_id, team_id, player_id FROM match_players WHERE match_id = $1
	`, cur.ID); err != nil {
		return false, errInternal("roster snapshot read failed", err)
	}

	if cur.PerHead > 0 && len(snapshot) > 0 {
		winners := make([]int64, 0, len(snapshot)/2)
		losers := make([]int64, 0, len(snapshot)/2)
		for _, sp := range snapshot {
			if sp.TeamID == winnerTeamID {
				winners = append(winners, sp.PlayerID)
			} else {
				losers = append(losers, sp.PlayerID)
			}
		}
		if err := ledger.PayoutPlayers(tx, winners, losers, cur.PerHead); err != nil {
			return false, mapLedgerError(err)
		}
	} else {
		if err := ledger.PayoutTeams(tx, cur.TeamAID, cur.TeamBID, winnerTeamID, cur.Wager); err != nil {
			return false, mapLedgerError(err)
		}
	}

	scoreVal := sql.NullString{String: score, Valid: score != ""}
	if _, err := tx.Exec(`
		UPDATE matches
		SET status = 'finished', winner_team_id = $2, score = $3, finished_at = NOW()
		WHERE id = $1
	`, cur.ID, winnerTeamID, scoreVal); err != nil {
		return false, errInternal("match finish failed", err)
	}

	loserTeamID := cur.TeamAID
	if winnerTeamID == cur.TeamAID {
		loserTeamID = cur.TeamBID
	}
	if _, err := tx.Exec(`UPDATE teams SET wins = wins + 1, updated_at = NOW() WHERE id = $1`, winnerTeamID); err != nil {
		return false, errInternal("win record update failed", err)
	}
	if _, err := tx.Exec(`UPDATE teams SET losses = losses + 1, updated_at = NOW() WHERE id = $1`, loserTeamID); err != nil {
		return false, errInternal("loss record update failed", err)
	}

	if err := tx.Commit(); err != nil {
		return false, errInternal("payout commit failed", err)
	}
	return false, nil
}

// History lists the team's finished matches, newest first.
func (s *Service) History(teamID int64, limit int) ([]MatchView, error) {
	if teamID <= 0 {
		return nil, errValidation("invalid_team_id", "teamId must be a positive id")
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var rows []models.Match
	if err := s.db.Select(&rows, `
		SELECT * FROM matches
		WHERE (team_a_id = $1 OR team_b_id = $1) AND status = 'finished'
		ORDER BY finished_at DESC
		LIMIT $2
	`, teamID, limit); err != nil {
		return nil, errInternal("history lookup failed", err)
	}

	views := make([]MatchView, 0, len(rows))
	for i := range rows {
		views = append(views, matchView(&rows[i]))
	}
	return views, nil
}

// mapLedgerError translates ledger failures into the closed error-kind set.
func mapLedgerError(err error) *Error {
	var insufficient *ledger.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		e := errInsufficient("insufficient_funds", insufficient.Error())
		e.Err = err
		return e
	case errors.Is(err, ledger.ErrWagerIndivisible):
		return errConflict("wager_incompatible_with_team_size", err.Error(), 400)
	case errors.Is(err, ledger.ErrRosterSizeMismatch):
		return errConflict("teams_with_different_sizes", err.Error(), 400)
	case errors.Is(err, ledger.ErrTeamNotFound):
		return errNotFound("team_not_found", err.Error())
	default:
		return errInternal("ledger transaction failed", err)
	}
}
