package roster

import (
	"github.com/jmoiron/sqlx"
)

// Roster membership queries. The players.team_id relation is the single
// canonical roster; team size requirements come from teams.roster_size.

// Store satisfies matchmaking.RosterStore backed by the players relation.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// PlayerIDs returns the team's roster in id order, inside the caller's
// transaction so escrow sees a consistent snapshot.
func (s *Store) PlayerIDs(tx *sqlx.Tx, teamID int64) ([]int64, error) {
	var ids []int64
	if err := tx.Select(&ids, `SELECT id FROM players WHERE team_id = $1 ORDER BY id`, teamID); err != nil {
		return nil, err
	}
	return ids, nil
}

// Completeness is the roster-size gate result.
type Completeness struct {
	Complete bool
	Have     int
	Need     int
}

// CheckComplete reports whether the team's roster has exactly the required
// number of players (teams.roster_size, typically 5).
func (s *Store) CheckComplete(teamID int64) (*Completeness, error) {
	var row struct {
		Have int `db:"have"`
		Need int `db:"need"`
	}
	err := s.db.Get(&row, `
		SELECT t.roster_size AS need,
		       (SELECT COUNT(*) FROM players p WHERE p.team_id = t.id) AS have
		FROM teams t
		WHERE t.id = $1
	`, teamID)
	if err != nil {
		return nil, err
	}
	return &Completeness{Complete: row.Have == row.Need, Have: row.Have, Need: row.Need}, nil
}

// IsCaptain reports whether the player is the captain of the team.
func (s *Store) IsCaptain(playerID, teamID int64) (bool, error) {
	var isCaptain bool
	err := s.db.Get(&isCaptain, `
		SELECT EXISTS (
			SELECT 1 FROM players
			WHERE id = $1 AND team_id = $2 AND is_captain = TRUE
		)
	`, playerID, teamID)
	return isCaptain, err
}
