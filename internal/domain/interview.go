package domain

import "time"

// InterviewStatus is the interview's own state machine, independent of any
// job lifecycle. An interview becomes evaluated if and only if its
// interview-evaluate job completes.
type InterviewStatus string

const (
	InterviewStatusInProgress InterviewStatus = "in-progress"
	InterviewStatusCompleted  InterviewStatus = "completed"
	InterviewStatusEvaluated  InterviewStatus = "evaluated"
)

// Interview is an owning resource for evaluation jobs and judge evaluations.
type Interview struct {
	ID          string          `gorm:"type:text;primaryKey" json:"id"`
	UserID      string          `gorm:"type:text;not null;index" json:"user_id"`
	Role        string          `json:"role,omitempty"`
	Status      InterviewStatus `gorm:"type:text;default:in-progress" json:"status"`
	Report      string          `gorm:"type:text" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	EvaluatedAt *time.Time      `json:"evaluated_at,omitempty"`
}

// TableName returns the database table name for Interview.
func (Interview) TableName() string {
	return "interviews"
}

// InterviewAnswer is one answered question's transcript within an interview.
type InterviewAnswer struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	InterviewID string    `gorm:"type:text;not null;index" json:"interview_id"`
	Position    int       `json:"position"`
	Question    string    `gorm:"type:text" json:"question"`
	Transcript  string    `gorm:"type:text" json:"transcript"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for InterviewAnswer.
func (InterviewAnswer) TableName() string {
	return "interview_answers"
}
