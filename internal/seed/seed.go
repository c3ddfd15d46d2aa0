package seed

import (
	"fmt"
	"log"

	"promptlime/internal/models"
	"promptlime/internal/validation"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPrompts  int
	ShouldClean bool
	DryRun      bool
	// MaxDays spreads generated timestamps over this many days.
	MaxDays   int
	BatchSize int
	// RandSeed makes a run reproducible; zero seeds from the clock.
	RandSeed int64
}

// Summary counts what a Seed run produced.
type Summary struct {
	Users         int
	Curated       int
	Prompts       int
	Likes         int
	Reports       int
	Notifications int
}

// Seed populates the database with the built-in catalog plus demo data.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d prompts...", opts.NumUsers, opts.NumPrompts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	summary := &Summary{}
	cat, err := LoadCatalog()
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		if err := SeedCatalog(db, cat); err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		log.Printf("✓ %d categories and %d tools available", len(cat.Categories), len(cat.Tools))

		if summary.Curated, err = CuratedPrompts(db); err != nil {
			return nil, fmt.Errorf("failed to seed curated prompts: %w", err)
		}
		log.Printf("✓ %d curated prompts created", summary.Curated)
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, u)
		if _, err := f.CreateNotification(u); err != nil {
			return nil, fmt.Errorf("failed to create notifications: %w", err)
		}
		summary.Notifications++
	}
	summary.Users = len(users)
	log.Printf("✓ %d test users created", summary.Users)

	categories, tools := slugsOf(cat.Categories), slugsOf(cat.Tools)
	prompts := make([]*models.Prompt, 0, opts.NumPrompts)
	for i := 0; i < opts.NumPrompts; i++ {
		category := categories[f.rng.Intn(len(categories))]
		tool := tools[f.rng.Intn(len(tools))]
		prompts = append(prompts, f.BuildPrompt(category, tool))
	}
	if err := f.CreatePromptsBatch(prompts); err != nil {
		return nil, fmt.Errorf("failed to create prompts: %w", err)
	}
	summary.Prompts = len(prompts)
	log.Printf("✓ %d prompts created", summary.Prompts)

	if len(users) > 0 && len(prompts) > 0 {
		likes, reports, err := engage(f, users, prompts)
		if err != nil {
			return nil, err
		}
		summary.Likes, summary.Reports = likes, reports
		log.Printf("✓ %d likes and %d reports created", likes, reports)
	}

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

// engage has every user like a handful of prompts and occasionally report one.
func engage(f *Factory, users []*models.User, prompts []*models.Prompt) (int, int, error) {
	likes, reports := 0, 0
	for _, u := range users {
		n := f.rng.Intn(min(len(prompts), 8) + 1)
		for _, idx := range f.rng.Perm(len(prompts))[:n] {
			before := prompts[idx].Likes
			if err := f.CreateLike(u, prompts[idx]); err != nil {
				return likes, reports, fmt.Errorf("failed to create likes: %w", err)
			}
			if prompts[idx].Likes > before {
				likes++
			}
		}
		if f.rng.Intn(5) == 0 {
			if _, err := f.CreateReport(u, prompts[f.rng.Intn(len(prompts))]); err != nil {
				return likes, reports, fmt.Errorf("failed to create reports: %w", err)
			}
			reports++
		}
	}
	return likes, reports, nil
}

func slugsOf(entries []CatalogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if s, err := validation.Slugify(e.Name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Notification{}, &models.Report{}, &models.Like{},
		&models.Prompt{}, &models.PaymentEvent{}, &models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
