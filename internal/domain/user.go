package domain

import "time"

// Feature is a quota category key. Feature keys map 1:1 to the monthly
// counters on UsageCounter; an unmapped key has no quota and is always
// allowed.
type Feature string

const (
	FeatureInterviews        Feature = "interviews"
	FeatureATSChecks         Feature = "ats-checks"
	FeatureResumeGenerations Feature = "resume-generations"
)

// MonthKey formats t as the YYYY-MM tag used on usage counters.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageCounter tracks per-feature consumption for one calendar month.
// Counters are reset whenever Month lags the current month (reset-on-read)
// and are never decremented.
type UsageCounter struct {
	Interviews        int    `gorm:"default:0" json:"interviews"`
	ATSChecks         int    `gorm:"column:ats_checks;default:0" json:"ats_checks"`
	ResumeGenerations int    `gorm:"default:0" json:"resume_generations"`
	Month             string `json:"month"`
}

// Normalize zeroes all counters if the recorded month is not the month of
// now. It must run before any read or increment.
func (c *UsageCounter) Normalize(now time.Time) {
	month := MonthKey(now)
	if c.Month == month {
		return
	}
	c.Interviews = 0
	c.ATSChecks = 0
	c.ResumeGenerations = 0
	c.Month = month
}

// Get returns the counter for a feature, or 0 for an unmapped key.
func (c *UsageCounter) Get(f Feature) int {
	switch f {
	case FeatureInterviews:
		return c.Interviews
	case FeatureATSChecks:
		return c.ATSChecks
	case FeatureResumeGenerations:
		return c.ResumeGenerations
	}
	return 0
}

// Add increments the counter for a feature. Unmapped keys are ignored.
func (c *UsageCounter) Add(f Feature) {
	switch f {
	case FeatureInterviews:
		c.Interviews++
	case FeatureATSChecks:
		c.ATSChecks++
	case FeatureResumeGenerations:
		c.ResumeGenerations++
	}
}

// User is the account entity. Authentication is external; handlers receive
// the caller's id already verified. The usage counter is embedded so quota
// state travels with the user row.
type User struct {
	ID        string       `gorm:"type:text;primaryKey" json:"id"`
	Email     string       `gorm:"index" json:"email,omitempty"`
	PlanID    string       `gorm:"default:free" json:"plan_id"`
	Usage     UsageCounter `gorm:"embedded;embeddedPrefix:usage_" json:"usage"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}
