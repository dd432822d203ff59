package storage

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that owns student case files.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Student is one case file. Profile columns are refreshed on every document
// upload from the LLM extraction, falling back to the placeholder record.
type Student struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Diagnosis string    `json:"diagnosis"`
	Grade     string    `json:"grade"`
	IEPDate   string    `gorm:"column:iep_date" json:"iep_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatTurn is one entry of the durable, append-only chat log. Clearing the
// visible session history never deletes these rows.
type ChatTurn struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index:idx_chat_turns_scope" json:"user_id"`
	StudentID uuid.UUID `gorm:"type:uuid;index:idx_chat_turns_scope" json:"student_id"`
	Role      string    `gorm:"not null" json:"role"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Chat turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
