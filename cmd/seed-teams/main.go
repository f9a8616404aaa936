package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/rivalpit/backend/internal/config"
	"github.com/rivalpit/backend/internal/database"
)

// Seeds N full teams of 5 players each for local development. The first
// player of every team is its captain. Idempotent: re-running skips teams
// that already exist.
func main() {
	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	teamCount := 4
	if raw := os.Getenv("SEED_TEAM_COUNT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			teamCount = n
		}
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "letmein"
		log.Printf("WARNING: Using default seed password. Set SEED_PASSWORD env var!")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	startingBalance := int64(1000)
	rosterSize := 5

	for i := 1; i <= teamCount; i++ {
		name := fmt.Sprintf("team-%d", i)
		if err := seedTeam(db, name, rosterSize, string(hash), startingBalance, cfg.WeeklyAllowancePerPlayer); err != nil {
			log.Fatalf("Failed to seed %s: %v", name, err)
		}
	}

	log.Printf("✓ Seeded %d teams of %d players (password: %s)", teamCount, rosterSize, password)
}

func seedTeam(db *sqlx.DB, name string, rosterSize int, passwordHash string, balance, allowance int64) error {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM teams WHERE name = $1)`, name); err != nil {
		return err
	}
	if exists {
		log.Printf("  %s already exists, skipping", name)
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var teamID int64
	if err := tx.Get(&teamID, `
		INSERT INTO teams (name, roster_size, free_balance, frozen_balance)
		VALUES ($1, $2, 0, 0)
		RETURNING id
	`, name, rosterSize); err != nil {
		return err
	}

	var captainID int64
	for p := 1; p <= rosterSize; p++ {
		nickname := fmt.Sprintf("%s-player-%d", name, p)
		isCaptain := p == 1

		var playerID int64
		if err := tx.Get(&playerID, `
			INSERT INTO players (nickname, password_hash, team_id, is_captain,
			                     free_balance, frozen_balance, weekly_allowance, last_accrual_at)
			VALUES ($1, $2, $3, $4, $5, 0, $6, NOW())
			RETURNING id
		`, nickname, passwordHash, teamID, isCaptain, balance, allowance); err != nil {
			return err
		}
		if isCaptain {
			captainID = playerID
		}
	}

	if _, err := tx.Exec(`UPDATE teams SET captain_id = $1 WHERE id = $2`, captainID, teamID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("  %s created (%d players)", name, rosterSize)
	return nil
}
