package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ResumeContent is the structured body of a resume as produced by a parser.
type ResumeContent struct {
	Name       string            `json:"name,omitempty"`
	Headline   string            `json:"headline,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Experience []ResumeEntry     `json:"experience,omitempty"`
	Education  []ResumeEntry     `json:"education,omitempty"`
	Skills     []string          `json:"skills,omitempty"`
	Links      map[string]string `json:"links,omitempty"`
}

// ResumeEntry is a single dated item in a resume section.
type ResumeEntry struct {
	Title       string `json:"title"`
	Org         string `json:"org,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
}

// Value implements driver.Valuer so the content is stored as a JSON column.
func (c ResumeContent) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for reading the JSON column back.
func (c *ResumeContent) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported resume content type %T", value)
	}
}

// Resume is an owning resource for parse, render, and ATS jobs.
type Resume struct {
	ID          string        `gorm:"type:text;primaryKey" json:"id"`
	UserID      string        `gorm:"type:text;not null;index" json:"user_id"`
	Title       string        `json:"title"`
	Content     ResumeContent `gorm:"type:text" json:"content"`
	RawText     string        `gorm:"type:text" json:"-"`
	Source      string        `json:"source,omitempty"`
	ArtifactKey string        `json:"-"`
	ArtifactURL string        `json:"artifact_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Resume.
func (Resume) TableName() string {
	return "resumes"
}
