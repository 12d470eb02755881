package domain

import "time"

// IdempotencyRecord caches the first successful response for a
// client-supplied idempotency key. Records are created only after a 2xx
// response, never overwritten, and become invisible once expired.
type IdempotencyRecord struct {
	Key        string    `gorm:"type:text;primaryKey" json:"key"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Headers    string    `gorm:"type:text" json:"headers"`
	Body       []byte    `gorm:"type:blob" json:"body"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for IdempotencyRecord.
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
