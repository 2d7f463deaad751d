package domain

import "time"

// Operator is a staff member allowed to confirm payments.
type Operator struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Login        string    `json:"login" gorm:"type:varchar(255);not null;uniqueIndex:ux_operators_login"`
	FullName     string    `json:"full_name" gorm:"type:text;not null"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
}

func (Operator) TableName() string { return "operators" }

// SessionRecord is the persisted form of an operator login.
type SessionRecord struct {
	ID         int64     `gorm:"primaryKey"`
	OperatorID int64     `gorm:"not null;index"`
	TokenHash  string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_operator_sessions_token"`
	ExpiresAt  time.Time `gorm:"not null"`
	RevokedAt  *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (SessionRecord) TableName() string { return "operator_sessions" }

// Session identifies the operator performing an action. It is passed
// explicitly to every operation that records who processed something.
type Session struct {
	ID         int64     `json:"id,string"`
	OperatorID int64     `json:"operator_id,string"`
	Login      string    `json:"login"`
	FullName   string    `json:"full_name"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s Session) Valid() bool {
	return s.OperatorID != 0
}
