package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchHasTeam(t *testing.T) {
	m := &Match{TeamAID: 3, TeamBID: 9}

	assert.True(t, m.HasTeam(3))
	assert.True(t, m.HasTeam(9))
	assert.False(t, m.HasTeam(4))
}

func TestMatchAcceptedBy(t *testing.T) {
	m := &Match{TeamAID: 3, TeamBID: 9}
	assert.Empty(t, m.AcceptedBy())

	m.TeamBAccepted = true
	assert.Equal(t, []int64{9}, m.AcceptedBy())

	m.TeamAAccepted = true
	assert.Equal(t, []int64{3, 9}, m.AcceptedBy())
}
