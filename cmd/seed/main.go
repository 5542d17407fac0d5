// Command seed populates a PostgreSQL database with the deterministic
// demo fleet used by the dashboards.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/seed"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	players := telemetry.NewPlayerPostgresStore(db)
	sessions := telemetry.NewSessionPostgresStore(db)
	events := telemetry.NewEventPostgresStore(db)
	for name, migrate := range map[string]func(context.Context) error{
		"players":  players.Migrate,
		"sessions": sessions.Migrate,
		"events":   events.Migrate,
	} {
		if err := migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate %s: %v", name, err)
		}
	}

	summary, seeded, err := seed.RunIfEmpty(ctx, players, sessions, events)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if !seeded {
		log.Println("Database already has players, nothing to do")
		return
	}
	log.Printf("Seeded %d players, %d sessions, %d events",
		summary.Players, summary.Sessions, summary.Events)
}
