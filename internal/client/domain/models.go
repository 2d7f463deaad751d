package domain

import "time"

// Client is a subscriber. Passport series and number are unique together when present.
type Client struct {
	ID             int64     `json:"id,string" gorm:"primaryKey"`
	FullName       string    `json:"full_name" gorm:"type:text;not null"`
	Address        *string   `json:"address,omitempty" gorm:"type:text"`
	Phone          *string   `json:"phone,omitempty" gorm:"type:text"`
	Email          *string   `json:"email,omitempty" gorm:"type:text"`
	PassportSeries *string   `json:"passport_series,omitempty" gorm:"type:varchar(255);uniqueIndex:ux_clients_passport,priority:1"`
	PassportNumber *string   `json:"passport_number,omitempty" gorm:"type:varchar(255);uniqueIndex:ux_clients_passport,priority:2"`
	PassportIssuer *string   `json:"passport_issuer,omitempty" gorm:"type:text"`
	RegisteredAt   time.Time `json:"registered_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (Client) TableName() string { return "clients" }
