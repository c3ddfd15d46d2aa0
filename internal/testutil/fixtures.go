// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"promptlime/internal/database"
	"promptlime/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory SQLite database. A single
// connection keeps every query on the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// SeedUser inserts a user with the given email.
func SeedUser(t testing.TB, db *gorm.DB, email string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{Email: models.NormalizeEmail(email), Name: email}
	for _, fn := range mutate {
		fn(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedCatalog inserts one category and one tool and returns their slugs.
func SeedCatalog(t testing.TB, db *gorm.DB) (category, tool string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Category{Name: "Portraits", Slug: "portraits"}).Error)
	require.NoError(t, db.Create(&models.Tool{Name: "Midjourney", Slug: "midjourney"}).Error)
	return "portraits", "midjourney"
}

// SeedPrompt inserts a prompt in the portraits/midjourney catalog.
func SeedPrompt(t testing.TB, db *gorm.DB, title string, mutate ...func(*models.Prompt)) *models.Prompt {
	t.Helper()
	p := &models.Prompt{
		Title:    title,
		Category: "portraits",
		Tool:     "midjourney",
		Tags:     []string{"studio"},
		Body:     "A studio portrait of " + title,
	}
	for _, fn := range mutate {
		fn(p)
	}
	require.NoError(t, db.Omit("Liked").Create(p).Error)
	return p
}

// TinyPNG returns an in-memory PNG with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255}) // #nosec G115
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
