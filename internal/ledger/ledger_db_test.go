package ledger

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalpit/backend/internal/testutil"
)

func sumBalances(t *testing.T, db *sqlx.DB, playerIDs []int64) int64 {
	t.Helper()
	var total int64
	for _, id := range playerIDs {
		free, frozen := testutil.Balances(t, db, id)
		total += free + frozen
	}
	return total
}

func TestEscrowPlayers(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	all := append(append([]int64{}, teamA.PlayerIDs...), teamB.PlayerIDs...)
	before := sumBalances(t, db, all)

	tx, err := db.Beginx()
	require.NoError(t, err)
	share, err := EscrowPlayers(tx, teamA.ID, teamB.ID, teamA.PlayerIDs, teamB.PlayerIDs, 100)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(20), share)
	for _, id := range all {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(80), free, "player %d", id)
		assert.Equal(t, int64(20), frozen, "player %d", id)
	}
	assert.Equal(t, before, sumBalances(t, db, all), "escrow only shifts free to frozen")
}

func TestEscrowPlayersInsufficientFunds(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	broke := teamB.PlayerIDs[2]
	testutil.SetPlayerBalance(t, db, broke, 15)

	tx, err := db.Beginx()
	require.NoError(t, err)
	_, err = EscrowPlayers(tx, teamA.ID, teamB.ID, teamA.PlayerIDs, teamB.PlayerIDs, 100)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, broke, insufficient.PlayerID)
	assert.Equal(t, "team_b", insufficient.TeamSide)
	assert.Equal(t, "free", insufficient.Balance)

	free, frozen := testutil.Balances(t, db, broke)
	assert.Equal(t, int64(15), free)
	assert.Equal(t, int64(0), frozen)
	for _, id := range teamA.PlayerIDs {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(100), free, "player %d untouched after rollback", id)
		assert.Equal(t, int64(0), frozen, "player %d untouched after rollback", id)
	}
}

func TestEscrowPlayersRosterValidation(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 4, 100)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = EscrowPlayers(tx, teamA.ID, teamB.ID, teamA.PlayerIDs, teamB.PlayerIDs, 100)
	assert.ErrorIs(t, err, ErrRosterSizeMismatch)

	_, err = EscrowPlayers(tx, teamA.ID, teamB.ID, teamA.PlayerIDs, teamA.PlayerIDs, 101)
	assert.ErrorIs(t, err, ErrWagerIndivisible)
}

func TestPayoutPlayers(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)

	tx, err := db.Beginx()
	require.NoError(t, err)
	share, err := EscrowPlayers(tx, teamA.ID, teamB.ID, teamA.PlayerIDs, teamB.PlayerIDs, 100)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, PayoutPlayers(tx, teamA.PlayerIDs, teamB.PlayerIDs, share))
	require.NoError(t, tx.Commit())

	for _, id := range teamA.PlayerIDs {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(120), free, "winner %d credited twice the share", id)
		assert.Equal(t, int64(0), frozen, "winner %d frozen released", id)
	}
	for _, id := range teamB.PlayerIDs {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(80), free, "loser %d keeps the post-escrow balance", id)
		assert.Equal(t, int64(0), frozen, "loser %d frozen released", id)
	}
}

func TestEscrowAndPayoutTeams(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedWalletTeam(t, db, "alpha", 500)
	teamB := testutil.SeedWalletTeam(t, db, "bravo", 500)

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, EscrowTeams(tx, teamA, teamB, 100))
	require.NoError(t, tx.Commit())

	for _, id := range []int64{teamA, teamB} {
		free, frozen := testutil.TeamBalances(t, db, id)
		assert.Equal(t, int64(400), free)
		assert.Equal(t, int64(100), frozen)
	}

	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, PayoutTeams(tx, teamA, teamB, teamA, 100))
	require.NoError(t, tx.Commit())

	free, frozen := testutil.TeamBalances(t, db, teamA)
	assert.Equal(t, int64(600), free, "winner credited twice the wager")
	assert.Equal(t, int64(0), frozen)
	free, frozen = testutil.TeamBalances(t, db, teamB)
	assert.Equal(t, int64(400), free)
	assert.Equal(t, int64(0), frozen)
}

func TestEscrowTeamsInsufficientFunds(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	teamA := testutil.SeedWalletTeam(t, db, "alpha", 500)
	teamB := testutil.SeedWalletTeam(t, db, "bravo", 50)

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = EscrowTeams(tx, teamA, teamB, 100)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, teamB, insufficient.TeamID)
	assert.Zero(t, insufficient.PlayerID)

	free, frozen := testutil.TeamBalances(t, db, teamA)
	assert.Equal(t, int64(500), free)
	assert.Equal(t, int64(0), frozen)
}

func TestApplyWeeklyAllowance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	db := testDB.DB

	team := testutil.SeedTeam(t, db, "alpha", 2, 100)
	now := time.Now()
	owed := team.PlayerIDs[0]
	testutil.SetLastAccrual(t, db, owed, MondayUTC(now).AddDate(0, 0, -14))

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, ApplyWeeklyAllowance(tx, team.PlayerIDs, now))
	require.NoError(t, tx.Commit())

	free, _ := testutil.Balances(t, db, owed)
	assert.Equal(t, int64(100+2*200), free, "two whole weeks owed at the default allowance")
	free, _ = testutil.Balances(t, db, team.PlayerIDs[1])
	assert.Equal(t, int64(100), free, "current players get nothing")

	// Same week, second call: the accrual anchor is normalized, nothing paid.
	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, ApplyWeeklyAllowance(tx, team.PlayerIDs, now))
	require.NoError(t, tx.Commit())

	free, _ = testutil.Balances(t, db, owed)
	assert.Equal(t, int64(500), free, "accrual is idempotent within a week")
}
