package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Recommendation is a judge's categorical hiring verdict.
type Recommendation string

const (
	RecommendationStrongHire Recommendation = "strong-hire"
	RecommendationHire       Recommendation = "hire"
	RecommendationMaybe      Recommendation = "maybe"
	RecommendationNoHire     Recommendation = "no-hire"
)

// ScoreMap holds per-category numeric scores, stored as a JSON column.
type ScoreMap map[string]float64

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *ScoreMap) Scan(value interface{}) error {
	if value == nil {
		*m = ScoreMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported score map type %T", value)
	}
}

// StringList is a []string stored as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported string list type %T", value)
	}
}

// JudgeEvaluation is one evaluator's scored assessment of an interview. At
// most one record exists per (interview, judge) pair; resubmission resets the
// existing record instead of creating a duplicate. It moves through the same
// four-state lifecycle as JobRecord.
type JudgeEvaluation struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	InterviewID    string         `gorm:"type:text;not null;uniqueIndex:idx_eval_interview_judge" json:"interview_id"`
	JudgeID        string         `gorm:"type:text;not null;uniqueIndex:idx_eval_interview_judge" json:"judge_id"`
	JudgeRole      string         `json:"judge_role,omitempty"`
	Status         JobStatus      `gorm:"type:text;default:pending" json:"status"`
	Weight         float64        `gorm:"default:1.0" json:"weight"`
	Scores         ScoreMap       `gorm:"type:text" json:"scores"`
	Strengths      StringList     `gorm:"type:text" json:"strengths"`
	Improvements   StringList     `gorm:"type:text" json:"improvements"`
	Summary        string         `gorm:"type:text" json:"summary,omitempty"`
	Recommendation Recommendation `gorm:"type:text" json:"recommendation,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// TableName returns the database table name for JudgeEvaluation.
func (JudgeEvaluation) TableName() string {
	return "judge_evaluations"
}
