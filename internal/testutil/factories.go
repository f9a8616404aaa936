package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// SeededTeam is a team created by the factories below, with its roster in
// insertion (id) order. The first player is the captain.
type SeededTeam struct {
	ID        int64
	PlayerIDs []int64
}

// SeedTeam creates a team with the given roster size, every player holding
// freeBalance and a zero frozen balance. last_accrual_at is set to now so
// allowance accrual stays out of the way unless a test moves it.
func SeedTeam(t *testing.T, db *sqlx.DB, name string, rosterSize int, freeBalance int64) *SeededTeam {
	t.Helper()

	var teamID int64
	require.NoError(t, db.Get(&teamID, `
		INSERT INTO teams (name, roster_size) VALUES ($1, $2) RETURNING id
	`, name, rosterSize))

	team := &SeededTeam{ID: teamID}
	for i := 1; i <= rosterSize; i++ {
		var playerID int64
		require.NoError(t, db.Get(&playerID, `
			INSERT INTO players (nickname, password_hash, team_id, is_captain,
			                     free_balance, frozen_balance, last_accrual_at)
			VALUES ($1, 'x', $2, $3, $4, 0, NOW())
			RETURNING id
		`, fmt.Sprintf("%s-player-%d", name, i), teamID, i == 1, freeBalance))
		team.PlayerIDs = append(team.PlayerIDs, playerID)
	}

	_, err := db.Exec(`UPDATE teams SET captain_id = $1 WHERE id = $2`, team.PlayerIDs[0], teamID)
	require.NoError(t, err)
	return team
}

// SeedWalletTeam creates a rosterless team holding its wager in the team
// wallet, for team-level escrow paths.
func SeedWalletTeam(t *testing.T, db *sqlx.DB, name string, freeBalance int64) int64 {
	t.Helper()

	var teamID int64
	require.NoError(t, db.Get(&teamID, `
		INSERT INTO teams (name, roster_size, free_balance) VALUES ($1, 0, $2) RETURNING id
	`, name, freeBalance))
	return teamID
}

// Balances reads a player's free and frozen balance.
func Balances(t *testing.T, db *sqlx.DB, playerID int64) (free, frozen int64) {
	t.Helper()

	var row struct {
		Free   int64 `db:"free_balance"`
		Frozen int64 `db:"frozen_balance"`
	}
	require.NoError(t, db.Get(&row, `
		SELECT free_balance, frozen_balance FROM players WHERE id = $1
	`, playerID))
	return row.Free, row.Frozen
}

// TeamBalances reads a team wallet's free and frozen balance.
func TeamBalances(t *testing.T, db *sqlx.DB, teamID int64) (free, frozen int64) {
	t.Helper()

	var row struct {
		Free   int64 `db:"free_balance"`
		Frozen int64 `db:"frozen_balance"`
	}
	require.NoError(t, db.Get(&row, `
		SELECT free_balance, frozen_balance FROM teams WHERE id = $1
	`, teamID))
	return row.Free, row.Frozen
}

// SetPlayerBalance overwrites a player's free balance.
func SetPlayerBalance(t *testing.T, db *sqlx.DB, playerID, freeBalance int64) {
	t.Helper()
	_, err := db.Exec(`UPDATE players SET free_balance = $1 WHERE id = $2`, freeBalance, playerID)
	require.NoError(t, err)
}

// SetLastAccrual moves a player's allowance anchor to the given time.
func SetLastAccrual(t *testing.T, db *sqlx.DB, playerID int64, at time.Time) {
	t.Helper()
	_, err := db.Exec(`UPDATE players SET last_accrual_at = $1 WHERE id = $2`, at, playerID)
	require.NoError(t, err)
}
