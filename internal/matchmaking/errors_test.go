package matchmaking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalpit/backend/internal/ledger"
)

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	typed := errNotFound("match_not_found", "no such match")
	assert.Same(t, typed, AsError(typed))

	raw := errors.New("connection reset")
	wrapped := AsError(raw)
	require.NotNil(t, wrapped)
	assert.Equal(t, KindInternal, wrapped.Kind)
	assert.Equal(t, 500, wrapped.Status)
	assert.ErrorIs(t, wrapped, raw)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("tx aborted")
	e := errInternal("escrow failed", cause)

	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "tx aborted")
}

func TestMapLedgerError(t *testing.T) {
	t.Run("insufficient funds keeps the diagnostic detail", func(t *testing.T) {
		cause := &ledger.InsufficientFundsError{
			Balance: "free", TeamSide: "team_b", TeamID: 7, PlayerID: 42,
		}
		e := mapLedgerError(fmt.Errorf("escrow: %w", cause))

		assert.Equal(t, KindInsufficientFunds, e.Kind)
		assert.Equal(t, "insufficient_funds", e.Code)
		assert.Equal(t, 400, e.Status)
		assert.Contains(t, e.Message, "player 42")
	})

	t.Run("indivisible wager", func(t *testing.T) {
		e := mapLedgerError(ledger.ErrWagerIndivisible)
		assert.Equal(t, "wager_incompatible_with_team_size", e.Code)
		assert.Equal(t, 400, e.Status)
	})

	t.Run("roster size mismatch", func(t *testing.T) {
		e := mapLedgerError(ledger.ErrRosterSizeMismatch)
		assert.Equal(t, "teams_with_different_sizes", e.Code)
		assert.Equal(t, 400, e.Status)
	})

	t.Run("missing team", func(t *testing.T) {
		e := mapLedgerError(ledger.ErrTeamNotFound)
		assert.Equal(t, KindNotFound, e.Kind)
		assert.Equal(t, 404, e.Status)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		e := mapLedgerError(errors.New("deadlock detected"))
		assert.Equal(t, KindInternal, e.Kind)
		assert.Equal(t, 500, e.Status)
	})
}
