package models

import (
	"database/sql"
	"time"
)

// Match status values. Transitions are one-directional:
// pending -> active -> finished, pending -> cancelled.
const (
	MatchPending   = "pending"
	MatchActive    = "active"
	MatchFinished  = "finished"
	MatchCancelled = "cancelled"
)

// Team represents a competing team with its wallet
type Team struct {
	ID            int64         `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	CaptainID     sql.NullInt64 `db:"captain_id" json:"captain_id,omitempty"`
	RosterSize    int           `db:"roster_size" json:"roster_size"`
	DefaultWager  int64         `db:"default_wager" json:"default_wager"`
	FreeBalance   int64         `db:"free_balance" json:"free_balance"`
	FrozenBalance int64         `db:"frozen_balance" json:"frozen_balance"`
	Wins          int           `db:"wins" json:"wins"`
	Losses        int           `db:"losses" json:"losses"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Player represents a roster member with their personal wallet
type Player struct {
	ID              int64         `db:"id" json:"id"`
	Nickname        string        `db:"nickname" json:"nickname"`
	PasswordHash    string        `db:"password_hash" json:"-"`
	TeamID          sql.NullInt64 `db:"team_id" json:"team_id,omitempty"`
	IsCaptain       bool          `db:"is_captain" json:"is_captain"`
	FreeBalance     int64         `db:"free_balance" json:"free_balance"`
	FrozenBalance   int64         `db:"frozen_balance" json:"frozen_balance"`
	WeeklyAllowance int64         `db:"weekly_allowance" json:"weekly_allowance"`
	LastAccrualAt   sql.NullTime  `db:"last_accrual_at" json:"last_accrual_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// QueueEntry represents a team waiting for an opponent. One row per team.
type QueueEntry struct {
	ID        int64         `db:"id" json:"id"`
	TeamID    int64         `db:"team_id" json:"team_id"`
	Wager     int64         `db:"wager" json:"wager"`
	EnteredBy sql.NullInt64 `db:"entered_by" json:"entered_by,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Match represents a wagered contest between two teams
type Match struct {
	ID             int64          `db:"id" json:"id"`
	TeamAID        int64          `db:"team_a_id" json:"team_a_id"`
	TeamBID        int64          `db:"team_b_id" json:"team_b_id"`
	Wager          int64          `db:"wager" json:"wager"`
	Status         string         `db:"status" json:"status"`
	PerHead        int64          `db:"per_head" json:"per_head"`
	TeamAAccepted  bool           `db:"team_a_accepted" json:"team_a_accepted"`
	TeamBAccepted  bool           `db:"team_b_accepted" json:"team_b_accepted"`
	AcceptDeadline sql.NullTime   `db:"accept_deadline" json:"accept_deadline,omitempty"`
	WinnerTeamID   sql.NullInt64  `db:"winner_team_id" json:"winner_team_id,omitempty"`
	Score          sql.NullString `db:"score" json:"score,omitempty"`
	CancelReason   sql.NullString `db:"cancel_reason" json:"cancel_reason,omitempty"`
	StartedAt      sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// HasTeam reports whether teamID is one of the two competing teams.
func (m *Match) HasTeam(teamID int64) bool {
	return m.TeamAID == teamID || m.TeamBID == teamID
}

// AcceptedBy lists the teams currently in the accepted set.
func (m *Match) AcceptedBy() []int64 {
	accepted := make([]int64, 0, 2)
	if m.TeamAAccepted {
		accepted = append(accepted, m.TeamAID)
	}
	if m.TeamBAccepted {
		accepted = append(accepted, m.TeamBID)
	}
	return accepted
}

// MatchPlayer is a roster snapshot row captured at escrow time
type MatchPlayer struct {
	MatchID  int64 `db:"match_id" json:"match_id"`
	TeamID   int64 `db:"team_id" json:"team_id"`
	PlayerID int64 `db:"player_id" json:"player_id"`
}
