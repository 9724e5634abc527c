// Command seed fills the database with demo users, thoughts, reactions and
// friend edges.
package main

import (
	"context"
	"flag"
	"log"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/config"
	"deepthoughts/internal/database"
	"deepthoughts/internal/middleware"
	"deepthoughts/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	thoughts := flag.Int("thoughts", 3, "Thoughts per user")
	reactions := flag.Int("reactions", 2, "Reactions per thought")
	friends := flag.Int("friends", 3, "Friends per user")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := middleware.Configure(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	// Seeding bypasses the API, so the schema has to exist even in production.
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, auth.NewBcryptHasher(cfg.BcryptCost), logger)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum seed.Summary
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("Invalid fixture: %v", err)
		}
		sum, err = s.ApplyFixture(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = s.SeedRandom(ctx, seed.Options{
			Users:               *numUsers,
			ThoughtsPerUser:     *thoughts,
			ReactionsPerThought: *reactions,
			FriendsPerUser:      *friends,
			Seed:                *randSeed,
		})
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}

	log.Printf("Done: %s", sum)
}
