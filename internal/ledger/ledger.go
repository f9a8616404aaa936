package ledger

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Balance mutations live here and nowhere else. Every function operates on an
// open *sqlx.Tx so a failure anywhere rolls back the whole escrow or payout.

var (
	// ErrWagerIndivisible: the wager cannot be split into whole per-head shares.
	ErrWagerIndivisible = errors.New("wager incompatible with team size")

	// ErrRosterSizeMismatch: the two rosters are not the same size.
	ErrRosterSizeMismatch = errors.New("teams have different roster sizes")

	// ErrTeamNotFound: one of the two team rows is missing.
	ErrTeamNotFound = errors.New("team not found")
)

// InsufficientFundsError names the party that could not cover a debit.
type InsufficientFundsError struct {
	Balance  string // "free" or "frozen"
	TeamSide string // "team_a" or "team_b", empty for team-level checks
	TeamID   int64
	PlayerID int64 // 0 for team-level checks
}

func (e *InsufficientFundsError) Error() string {
	if e.PlayerID != 0 {
		return fmt.Sprintf("insufficient %s balance: player %d (%s)", e.Balance, e.PlayerID, e.TeamSide)
	}
	return fmt.Sprintf("insufficient %s balance: team %d", e.Balance, e.TeamID)
}

type balanceRow struct {
	ID            int64 `db:"id"`
	FreeBalance   int64 `db:"free_balance"`
	FrozenBalance int64 `db:"frozen_balance"`
}

// EscrowPlayers moves one per-head share from free to frozen for every player
// on both rosters. It validates roster compatibility, verifies every player's
// free balance, and debits in two batched writes. Returns the per-head share.
func EscrowPlayers(tx *sqlx.Tx, teamAID, teamBID int64, teamAPlayers, teamBPlayers []int64, wager int64) (int64, error) {
	if len(teamAPlayers) != len(teamBPlayers) {
		return 0, ErrRosterSizeMismatch
	}
	size := int64(len(teamAPlayers))
	if size == 0 || wager%size != 0 {
		return 0, ErrWagerIndivisible
	}
	share := wager / size

	if err := verifyPlayerBalances(tx, "free", "team_a", teamAID, teamAPlayers, share); err != nil {
		return 0, err
	}
	if err := verifyPlayerBalances(tx, "free", "team_b", teamBID, teamBPlayers, share); err != nil {
		return 0, err
	}

	all := append(append([]int64{}, teamAPlayers...), teamBPlayers...)
	if _, err := tx.Exec(`
		UPDATE players
		SET free_balance = free_balance - $1,
		    frozen_balance = frozen_balance + $1,
		    updated_at = NOW()
		WHERE id = ANY($2)
	`, share, pq.Array(all)); err != nil {
		return 0, fmt.Errorf("escrow player debit failed: %w", err)
	}

	return share, nil
}

// EscrowTeams is the team-wallet fallback used when either roster is empty:
// the full wager moves from each team's free balance into its frozen balance.
func EscrowTeams(tx *sqlx.Tx, teamAID, teamBID, wager int64) error {
	teams, err := lockTeams(tx, teamAID, teamBID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if t.FreeBalance < wager {
			return &InsufficientFundsError{Balance: "free", TeamID: t.ID}
		}
	}

	if _, err := tx.Exec(`
		UPDATE teams
		SET free_balance = free_balance - $1,
		    frozen_balance = frozen_balance + $1,
		    updated_at = NOW()
		WHERE id IN ($2, $3)
	`, wager, teamAID, teamBID); err != nil {
		return fmt.Errorf("escrow team debit failed: %w", err)
	}

	return nil
}

// PayoutPlayers settles a player-level match: every snapshotted player's
// frozen share is zeroed and each winner is credited twice the share.
func PayoutPlayers(tx *sqlx.Tx, winners, losers []int64, share int64) error {
	all := append(append([]int64{}, winners...), losers...)

	var rows []balanceRow
	if err := tx.Select(&rows, `
		SELECT id, free_balance, frozen_balance FROM players
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(all)); err != nil {
		return fmt.Errorf("payout player lock failed: %w", err)
	}
	for _, r := range rows {
		if r.FrozenBalance < share {
			return &InsufficientFundsError{Balance: "frozen", PlayerID: r.ID}
		}
	}

	if _, err := tx.Exec(`
		UPDATE players
		SET frozen_balance = frozen_balance - $1, updated_at = NOW()
		WHERE id = ANY($2)
	`, share, pq.Array(all)); err != nil {
		return fmt.Errorf("payout frozen release failed: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE players
		SET free_balance = free_balance + $1, updated_at = NOW()
		WHERE id = ANY($2)
	`, 2*share, pq.Array(winners)); err != nil {
		return fmt.Errorf("payout winner credit failed: %w", err)
	}

	return nil
}

// PayoutTeams settles a team-level match: both frozen wagers are zeroed and
// the winner's free balance is credited twice the wager.
func PayoutTeams(tx *sqlx.Tx, teamAID, teamBID, winnerTeamID, wager int64) error {
	teams, err := lockTeams(tx, teamAID, teamBID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if t.FrozenBalance < wager {
			return &InsufficientFundsError{Balance: "frozen", TeamID: t.ID}
		}
	}

	if _, err := tx.Exec(`
		UPDATE teams
		SET frozen_balance = frozen_balance - $1, updated_at = NOW()
		WHERE id IN ($2, $3)
	`, wager, teamAID, teamBID); err != nil {
		return fmt.Errorf("payout frozen release failed: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE teams
		SET free_balance = free_balance + $1, updated_at = NOW()
		WHERE id = $2
	`, 2*wager, winnerTeamID); err != nil {
		return fmt.Errorf("payout winner credit failed: %w", err)
	}

	return nil
}

func verifyPlayerBalances(tx *sqlx.Tx, balance, side string, teamID int64, playerIDs []int64, amount int64) error {
	var rows []balanceRow
	if err := tx.Select(&rows, `
		SELECT id, free_balance, frozen_balance FROM players
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(playerIDs)); err != nil {
		return fmt.Errorf("escrow player lock failed: %w", err)
	}
	if len(rows) != len(playerIDs) {
		return fmt.Errorf("roster snapshot references missing players: have %d, want %d", len(rows), len(playerIDs))
	}
	for _, r := range rows {
		have := r.FreeBalance
		if balance == "frozen" {
			have = r.FrozenBalance
		}
		if have < amount {
			return &InsufficientFundsError{Balance: balance, TeamSide: side, TeamID: teamID, PlayerID: r.ID}
		}
	}
	return nil
}

func lockTeams(tx *sqlx.Tx, teamAID, teamBID int64) ([]balanceRow, error) {
	var teams []balanceRow
	if err := tx.Select(&teams, `
		SELECT id, free_balance, frozen_balance FROM teams
		WHERE id IN ($1, $2)
		ORDER BY id
		FOR UPDATE
	`, teamAID, teamBID); err != nil {
		return nil, fmt.Errorf("team lock failed: %w", err)
	}
	if len(teams) != 2 {
		return nil, ErrTeamNotFound
	}
	return teams, nil
}
