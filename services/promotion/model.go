package promotion

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type DisplayFrequency string

const (
	FrequencyOnce    DisplayFrequency = "once"
	FrequencyDaily   DisplayFrequency = "daily"
	FrequencySession DisplayFrequency = "session_based"
	FrequencyAlways  DisplayFrequency = "always"
)

// Promotion is a popup campaign. PageTargets is a JSON array of page patterns;
// AudienceExpression is an optional CEL expression gating who sees it.
type Promotion struct {
	ID                  string           `gorm:"column:id;primaryKey"`
	Title               string           `gorm:"column:title;not null"`
	Message             string           `gorm:"column:message;type:text"`
	PageTargets         datatypes.JSON   `gorm:"column:page_targets"`
	DisplayFrequency    DisplayFrequency `gorm:"column:display_frequency;type:varchar(20);not null;default:always"`
	Priority            int              `gorm:"column:priority;not null;default:0"`
	DisplayDelaySeconds int              `gorm:"column:display_delay_seconds;not null;default:0"`
	AudienceExpression  string           `gorm:"column:audience_expression;type:text"`
	IsActive            bool             `gorm:"column:is_active;not null;default:true"`
	StartAt             *time.Time       `gorm:"column:start_at"`
	EndAt               *time.Time       `gorm:"column:end_at"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Promotion) TableName() string { return "promotions" }

// Pages decodes the target pattern list. A missing or empty list targets
// every page.
func (p *Promotion) Pages() []string {
	if len(p.PageTargets) == 0 {
		return nil
	}
	var pages []string
	if err := json.Unmarshal(p.PageTargets, &pages); err != nil {
		return nil
	}
	return pages
}

// InWindow reports whether the campaign is running at the given instant.
// Nil bounds are open-ended.
func (p *Promotion) InWindow(at time.Time) bool {
	if p.StartAt != nil && at.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && at.After(*p.EndAt) {
		return false
	}
	return true
}

// MatchesPage reports whether any target pattern matches the page. Patterns
// support an exact path, a trailing wildcard like "/products/*", and the
// global "/*".
func (p *Promotion) MatchesPage(page string) bool {
	pages := p.Pages()
	if len(pages) == 0 {
		return true
	}
	for _, pattern := range pages {
		if matchPage(pattern, page) {
			return true
		}
	}
	return false
}

func matchPage(pattern, page string) bool {
	if pattern == "/*" || pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return page == prefix || strings.HasPrefix(page, prefix+"/")
	}
	return pattern == page
}

// PageTargetsJSON marshals a pattern list for storage.
func PageTargetsJSON(pages ...string) datatypes.JSON {
	b, _ := json.Marshal(pages)
	return datatypes.JSON(b)
}
