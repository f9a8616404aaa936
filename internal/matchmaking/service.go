package matchmaking

import (
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rivalpit/backend/internal/models"
)

// RosterStore exposes roster membership to the matchmaking core. Roster
// mutation lives elsewhere; this is the whole contract.
type RosterStore interface {
	// PlayerIDs returns the team's roster inside the caller's transaction.
	PlayerIDs(tx *sqlx.Tx, teamID int64) ([]int64, error)
}

// Metrics is the explicitly injected counter collaborator shared by the
// matcher and the sweeper.
type Metrics struct {
	Queued   atomic.Int64
	Matched  atomic.Int64
	Started  atomic.Int64
	Finished atomic.Int64
	TimedOut atomic.Int64
}

// Snapshot returns the current counter values for logging and health output.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"queued":    m.Queued.Load(),
		"matched":   m.Matched.Load(),
		"started":   m.Started.Load(),
		"finished":  m.Finished.Load(),
		"timed_out": m.TimedOut.Load(),
	}
}

// Service is the matchmaking-and-escrow engine: queue matcher, match
// lifecycle state machine and timeout sweeper entrypoints.
type Service struct {
	db      *sqlx.DB
	rosters RosterStore
	log     *logrus.Logger
	metrics *Metrics

	acceptTimeout time.Duration
	scanLimit     int
}

func NewService(db *sqlx.DB, rosters RosterStore, log *logrus.Logger, metrics *Metrics, acceptTimeout time.Duration, scanLimit int) *Service {
	if scanLimit <= 0 {
		scanLimit = 100
	}
	return &Service{
		db:            db,
		rosters:       rosters,
		log:           log,
		metrics:       metrics,
		acceptTimeout: acceptTimeout,
		scanLimit:     scanLimit,
	}
}

// MatchView is the projection of a Match served to callers.
type MatchView struct {
	MatchID        int64      `json:"match_id"`
	Teams          []int64    `json:"teams"`
	Wager          int64      `json:"wager"`
	Status         string     `json:"status"`
	PerHead        int64      `json:"per_head,omitempty"`
	AcceptedBy     []int64    `json:"accepted_by"`
	AcceptDeadline *time.Time `json:"accept_deadline,omitempty"`
	WinnerTeamID   *int64     `json:"winner_team_id,omitempty"`
	Score          *string    `json:"score,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func matchView(m *models.Match) MatchView {
	v := MatchView{
		MatchID:    m.ID,
		Teams:      []int64{m.TeamAID, m.TeamBID},
		Wager:      m.Wager,
		Status:     m.Status,
		PerHead:    m.PerHead,
		AcceptedBy: m.AcceptedBy(),
	}
	if m.AcceptDeadline.Valid {
		t := m.AcceptDeadline.Time
		v.AcceptDeadline = &t
	}
	if m.WinnerTeamID.Valid {
		id := m.WinnerTeamID.Int64
		v.WinnerTeamID = &id
	}
	if m.Score.Valid {
		s := m.Score.String
		v.Score = &s
	}
	if m.CancelReason.Valid {
		r := m.CancelReason.String
		v.CancelReason = &r
	}
	if m.StartedAt.Valid {
		t := m.StartedAt.Time
		v.StartedAt = &t
	}
	if m.FinishedAt.Valid {
		t := m.FinishedAt.Time
		v.FinishedAt = &t
	}
	return v
}

// EnqueueResult reports either a parked queue entry or an immediate pairing.
type EnqueueResult struct {
	Queued    bool        `json:"queued"`
	Matched   bool        `json:"matched"`
	TeamID    int64       `json:"team_id,omitempty"`
	Wager     int64       `json:"wager,omitempty"`
	Tolerance float64     `json:"tolerance,omitempty"`
	Range     *WagerRange `json:"range,omitempty"`
	Match     *MatchView  `json:"match,omitempty"`
}

// StatusResult is the queue-or-match projection for a team.
type StatusResult struct {
	Queued    bool        `json:"queued"`
	Matched   bool        `json:"matched"`
	TeamID    int64       `json:"team_id,omitempty"`
	Wager     int64       `json:"wager,omitempty"`
	Tolerance float64     `json:"tolerance,omitempty"`
	Range     *WagerRange `json:"range,omitempty"`
	Match     *MatchView  `json:"match,omitempty"`
}

// AcceptResult carries either the updated match or the timeout cancellation
// discovered lazily on accept.
type AcceptResult struct {
	Cancelled bool      `json:"cancelled"`
	Match     MatchView `json:"match"`
}

// FinishResult flags idempotent replays of finish.
type FinishResult struct {
	AlreadyFinished bool      `json:"already_finished"`
	Match           MatchView `json:"match"`
}

const openMatchStates = `'pending', 'active'`

// hasOpenMatch reports whether the team is in any pending or active match.
func (s *Service) hasOpenMatch(teamID int64) (bool, error) {
	var exists bool
	err := s.db.Get(&exists, `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE (team_a_id = $1 OR team_b_id = $1) AND status IN (`+openMatchStates+`)
		)
	`, teamID)
	return exists, err
}

func (s *Service) getMatch(matchID int64) (*models.Match, error) {
	var m models.Match
	if err := s.db.Get(&m, `SELECT * FROM matches WHERE id = $1`, matchID); err != nil {
		return nil, err
	}
	return &m, nil
}
