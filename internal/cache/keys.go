package cache

import (
	"fmt"
	"time"
)

const (
	PromptKeyPrefix  = "prompt:%d"
	SettingKeyPrefix = "setting:%s"
	CategoriesKey    = "catalog:categories"
	ToolsKey         = "catalog:tools"
	FeaturedKey      = "prompts:featured"
)

const (
	PromptTTL   = 10 * time.Minute
	CatalogTTL  = 30 * time.Minute
	SettingTTL  = time.Minute
	FeaturedTTL = 5 * time.Minute
)

// PromptKey caches a prompt without per-user fields. Counters in the cached
// copy may lag behind the database by up to PromptTTL.
func PromptKey(promptID uint) string {
	return fmt.Sprintf(PromptKeyPrefix, promptID)
}

func SettingKey(key string) string {
	return fmt.Sprintf(SettingKeyPrefix, key)
}
