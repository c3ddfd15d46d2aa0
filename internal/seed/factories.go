// Package seed loads the built-in catalog and generates demo data for
// development databases and tests.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"promptlime/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

var (
	subjects = []string{
		"a lighthouse keeper", "an astronaut", "a street food vendor", "a jazz trio",
		"a vintage sports car", "a bonsai tree", "a desert caravan", "a robot barista",
		"a glass greenhouse", "a mountain monastery", "a koi pond", "a night market",
	}
	styles = []string{
		"cinematic lighting", "soft pastel palette", "hyperrealistic detail",
		"isometric 3D render", "watercolor texture", "film grain, 35mm",
		"studio softbox lighting", "moody low-key lighting", "flat vector style",
	}
	textTasks = []string{
		"Summarize the text below into five bullet points for an executive audience.",
		"Rewrite the paragraph below in plain English for a 12-year-old reader.",
		"Draft three subject lines for the email below and rank them by expected open rate.",
		"Turn the meeting notes below into a list of owners, actions and due dates.",
		"Explain the code below line by line and point out any edge cases it misses.",
	}
	imageTools = map[string]bool{
		"midjourney": true, "dall-e": true, "stable-diffusion": true, "leonardo-ai": true,
	}
)

// recentTime returns a timestamp spread over the last MaxDays days.
func (f *Factory) recentTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	user := &models.User{
		Email: models.NormalizeEmail(fmt.Sprintf("%s.%s.%d@example.com",
			first, last, gofakeit.Number(100, 999))),
		Name:  first + " " + last,
		Image: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	user.CreatedAt = f.recentTime()

	// Roughly one in ten demo accounts is Pro.
	if f.rng.Intn(10) == 0 {
		since := user.CreatedAt
		user.IsPro = true
		user.ProSince = &since
	} else if f.rng.Intn(2) == 0 {
		now := time.Now()
		user.CopyCount = f.rng.Intn(5)
		user.LastReset = &now
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPrompt constructs a prompt for the given category and tool without
// persisting it. Image tools get a visual prompt and a preview image; text
// tools get an instruction prompt.
func (f *Factory) BuildPrompt(category, tool string, overrides ...func(*models.Prompt)) *models.Prompt {
	subject := subjects[f.rng.Intn(len(subjects))]
	prompt := &models.Prompt{
		Category: category,
		Tool:     tool,
		Views:    int64(f.rng.Intn(2000)),
	}
	prompt.CopyCount = int64(f.rng.Intn(int(prompt.Views/4) + 1))
	prompt.CreatedAt = f.recentTime()

	if imageTools[tool] {
		style := styles[f.rng.Intn(len(styles))]
		prompt.Title = gofakeit.Adjective() + " " + strings.TrimPrefix(strings.TrimPrefix(subject, "a "), "an ")
		prompt.Body = fmt.Sprintf("%s in %s, %s, %s", strings.ToUpper(subject[:1])+subject[1:],
			gofakeit.City(), style, gofakeit.HipsterSentence(6))
		prompt.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/1000", gofakeit.UUID())
		prompt.Tags = models.NormalizeTags([]string{category, strings.Fields(style)[0], gofakeit.Color()})
	} else {
		task := textTasks[f.rng.Intn(len(textTasks))]
		prompt.Title = strings.TrimSuffix(strings.SplitN(task, " below", 2)[0], ".")
		prompt.Body = fmt.Sprintf("You are %s. %s\n\nText: {{paste here}}", gofakeit.JobTitle(), task)
		prompt.Tags = models.NormalizeTags([]string{category, gofakeit.BuzzWord()})
	}
	prompt.Title = strings.ToUpper(prompt.Title[:1]) + prompt.Title[1:]

	for _, override := range overrides {
		override(prompt)
	}
	return prompt
}

// CreatePromptsBatch persists multiple prompts in a single DB call when possible.
func (f *Factory) CreatePromptsBatch(prompts []*models.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range prompts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePromptsBatch: %d prompts (no DB write)", len(prompts))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.Omit("Liked").CreateInBatches(prompts, batch).Error
}

// CreateLike records a like from user on prompt and bumps the prompt's
// counter. An existing like is left alone.
func (f *Factory) CreateLike(user *models.User, prompt *models.Prompt) error {
	if f.opts.DryRun {
		prompt.Likes++
		return nil
	}
	return f.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: user.ID, PromptID: prompt.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		prompt.Likes++
		return tx.Model(&models.Prompt{}).Where("id = ?", prompt.ID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error
	})
}

// CreateReport files a pending report from user against prompt.
func (f *Factory) CreateReport(user *models.User, prompt *models.Prompt) (*models.Report, error) {
	reporter := user.ID
	report := &models.Report{
		PromptID:   prompt.ID,
		ReporterID: &reporter,
		Reason:     []string{"Spam", "Copyrighted material", "Misleading title", "Offensive content"}[f.rng.Intn(4)],
		Details:    gofakeit.Sentence(12),
		Status:     models.ReportStatusPending,
	}
	if f.opts.DryRun {
		f.nextID++
		report.ID = f.nextID
		return report, nil
	}
	if err := f.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// CreateNotification delivers a welcome notification to user.
func (f *Factory) CreateNotification(user *models.User) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  user.ID,
		Title:   "Welcome to PromptLime",
		Message: "Browse the catalog and copy up to five prompts a month for free.",
	}
	if f.opts.DryRun {
		f.nextID++
		n.ID = f.nextID
		return n, nil
	}
	if err := f.db.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}
