package matchmaking

import (
	"io"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalpit/backend/internal/models"
	"github.com/rivalpit/backend/internal/roster"
	"github.com/rivalpit/backend/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(testDB.DB, roster.NewStore(testDB.DB), log, &Metrics{}, time.Minute, 100)
	return svc, testDB.DB
}

// pairTeams enqueues both teams at the same wager and returns the pending match id.
func pairTeams(t *testing.T, svc *Service, teamA, teamB *testutil.SeededTeam, wager int64) int64 {
	t.Helper()

	res, err := svc.EnterQueue(teamA.ID, wager, teamA.PlayerIDs[0])
	require.NoError(t, err)
	require.True(t, res.Queued)

	res, err = svc.EnterQueue(teamB.ID, wager, teamB.PlayerIDs[0])
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, models.MatchPending, res.Match.Status)
	return res.Match.MatchID
}

func expireDeadline(t *testing.T, db *sqlx.DB, matchID int64) {
	t.Helper()
	_, err := db.Exec(`UPDATE matches SET accept_deadline = NOW() - INTERVAL '1 second' WHERE id = $1`, matchID)
	require.NoError(t, err)
}

func queuedTeams(t *testing.T, db *sqlx.DB) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Select(&ids, `SELECT team_id FROM queue_entries ORDER BY team_id`))
	return ids
}

func TestAcceptIsIdempotentAndEscrowsOnce(t *testing.T) {
	svc, db := newTestService(t)
	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	matchID := pairTeams(t, svc, teamA, teamB, 100)

	res, err := svc.Accept(matchID, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, res.Match.Status)
	assert.Equal(t, []int64{teamA.ID}, res.Match.AcceptedBy)

	// Re-accepting with the same team changes nothing.
	res, err = svc.Accept(matchID, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, res.Match.Status)
	assert.Equal(t, []int64{teamA.ID}, res.Match.AcceptedBy)
	free, frozen := testutil.Balances(t, db, teamA.PlayerIDs[0])
	assert.Equal(t, int64(100), free, "no escrow before both sides accept")
	assert.Equal(t, int64(0), frozen)

	// Second side completes the accepted set: escrow runs, match goes active.
	res, err = svc.Accept(matchID, teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchActive, res.Match.Status)
	assert.Equal(t, int64(20), res.Match.PerHead)
	for _, id := range append(append([]int64{}, teamA.PlayerIDs...), teamB.PlayerIDs...) {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(80), free, "player %d", id)
		assert.Equal(t, int64(20), frozen, "player %d", id)
	}

	// Accept on the active match is an acknowledgement, not a second escrow.
	res, err = svc.Accept(matchID, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchActive, res.Match.Status)
	free, frozen = testutil.Balances(t, db, teamA.PlayerIDs[0])
	assert.Equal(t, int64(80), free)
	assert.Equal(t, int64(20), frozen)
}

func TestFinishPaysOutAndReplaysIdempotently(t *testing.T) {
	svc, db := newTestService(t)
	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	matchID := pairTeams(t, svc, teamA, teamB, 100)

	_, err := svc.Accept(matchID, teamA.ID)
	require.NoError(t, err)
	_, err = svc.Accept(matchID, teamB.ID)
	require.NoError(t, err)

	res, err := svc.Finish(matchID, teamA.ID, "3-1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyFinished)
	assert.Equal(t, models.MatchFinished, res.Match.Status)
	require.NotNil(t, res.Match.WinnerTeamID)
	assert.Equal(t, teamA.ID, *res.Match.WinnerTeamID)

	for _, id := range teamA.PlayerIDs {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(120), free, "winner %d", id)
		assert.Equal(t, int64(0), frozen, "winner %d", id)
	}
	for _, id := range teamB.PlayerIDs {
		free, frozen := testutil.Balances(t, db, id)
		assert.Equal(t, int64(80), free, "loser %d", id)
		assert.Equal(t, int64(0), frozen, "loser %d", id)
	}

	var wins int
	require.NoError(t, db.Get(&wins, `SELECT wins FROM teams WHERE id = $1`, teamA.ID))
	assert.Equal(t, 1, wins)

	// Replay: acknowledged, no further balance movement.
	res, err = svc.Finish(matchID, teamA.ID, "3-1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyFinished)
	free, frozen := testutil.Balances(t, db, teamA.PlayerIDs[0])
	assert.Equal(t, int64(120), free)
	assert.Equal(t, int64(0), frozen)
	require.NoError(t, db.Get(&wins, `SELECT wins FROM teams WHERE id = $1`, teamA.ID))
	assert.Equal(t, 1, wins)
}

func TestAcceptAfterDeadlineCancelsAndRequeues(t *testing.T) {
	svc, db := newTestService(t)
	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	matchID := pairTeams(t, svc, teamA, teamB, 100)
	expireDeadline(t, db, matchID)

	res, err := svc.Accept(matchID, teamA.ID)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, models.MatchCancelled, res.Match.Status)
	require.NotNil(t, res.Match.CancelReason)
	assert.Equal(t, "timeout", *res.Match.CancelReason)

	assert.Equal(t, []int64{teamA.ID, teamB.ID}, queuedTeams(t, db))
}

func TestSweeperCancelsExactlyOnce(t *testing.T) {
	svc, db := newTestService(t)
	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	matchID := pairTeams(t, svc, teamA, teamB, 100)
	expireDeadline(t, db, matchID)

	lease := 10 * time.Millisecond
	svc.sweepExpiredMatches(lease)

	m, err := svc.getMatch(matchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCancelled, m.Status)
	assert.Equal(t, "timeout", m.CancelReason.String)
	assert.Equal(t, []int64{teamA.ID, teamB.ID}, queuedTeams(t, db))
	assert.Equal(t, int64(1), svc.metrics.TimedOut.Load())

	// A later sweep cycle finds nothing pending: the CAS already consumed it.
	time.Sleep(2 * lease)
	svc.sweepExpiredMatches(lease)
	assert.Equal(t, int64(1), svc.metrics.TimedOut.Load())
	assert.Equal(t, []int64{teamA.ID, teamB.ID}, queuedTeams(t, db))
}

func TestSweeperSkipsRequeueForBusyTeams(t *testing.T) {
	svc, db := newTestService(t)
	teamA := testutil.SeedTeam(t, db, "alpha", 5, 100)
	teamB := testutil.SeedTeam(t, db, "bravo", 5, 100)
	teamC := testutil.SeedTeam(t, db, "charlie", 5, 100)
	matchID := pairTeams(t, svc, teamA, teamB, 100)
	expireDeadline(t, db, matchID)

	// teamA is simultaneously in an active match with teamC.
	_, err := db.Exec(`
		INSERT INTO matches (team_a_id, team_b_id, wager, status, started_at)
		VALUES ($1, $2, 50, 'active', NOW())
	`, teamA.ID, teamC.ID)
	require.NoError(t, err)

	svc.sweepExpiredMatches(10 * time.Millisecond)

	m, err := svc.getMatch(matchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCancelled, m.Status)
	assert.Equal(t, []int64{teamB.ID}, queuedTeams(t, db), "busy teams stay out of the queue")
}
