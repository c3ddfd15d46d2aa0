// Command main runs the database seeder for PromptLime.
package main

import (
	"context"
	"flag"
	"log"

	"promptlime/internal/bootstrap"
	"promptlime/internal/config"
	"promptlime/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPrompts := flag.Int("prompts", 200, "Number of generated prompts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	catalogOnly := flag.Bool("catalog-only", false, "Only upsert the built-in categories, tools and curated prompts")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	maxDays := flag.Int("max-days", 90, "Spread generated timestamps over this many days")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCatalog: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	if *catalogOnly {
		n, err := seed.CuratedPrompts(db)
		if err != nil {
			log.Fatalf("❌ Curated prompt seeding failed: %v", err)
		}
		log.Printf("✨ Catalog ready, %d curated prompts added.", n)
		return
	}

	log.Printf("Target: %d users, %d prompts, clean=%v, dry-run=%v\n", *numUsers, *numPrompts, *shouldClean, *dryRun)
	summary, err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumPrompts:  *numPrompts,
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
		MaxDays:     *maxDays,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	// Cleaning removed admin accounts too; restore them.
	if *shouldClean && !*dryRun {
		if err := bootstrap.EnsureAdmins(context.Background(), cfg, db); err != nil {
			log.Fatalf("❌ Admin bootstrap failed: %v", err)
		}
	}

	log.Printf("✨ All done! %d users, %d prompts, %d likes, %d reports.",
		summary.Users, summary.Prompts+summary.Curated, summary.Likes, summary.Reports)
}
