package domain

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusSent, StatusInTransit, StatusDelivered, StatusReturned, StatusCancelled:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[Status][]Status{
	StatusScheduled: {StatusSent, StatusCancelled},
	StatusSent:      {StatusInTransit, StatusDelivered, StatusReturned},
	StatusInTransit: {StatusDelivered, StatusReturned},
}

// CanTransition reports whether a delivery may move from current to target.
func CanTransition(current, target Status) bool {
	for _, next := range allowedTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Delivery is one scheduled issue of a publication for an active subscription.
type Delivery struct {
	ID                   int64      `json:"id,string" gorm:"primaryKey"`
	SubscriptionID       int64      `json:"subscription_id,string" gorm:"not null;uniqueIndex:ux_deliveries_subscription_issue,priority:1"`
	IssueNumber          int        `json:"issue_number" gorm:"not null;uniqueIndex:ux_deliveries_subscription_issue,priority:2"`
	IssueDate            time.Time  `json:"issue_date" gorm:"not null"`
	ExpectedDeliveryDate time.Time  `json:"expected_delivery_date" gorm:"not null;index"`
	Status               Status     `json:"status" gorm:"type:varchar(32);not null"`
	SentAt               *time.Time `json:"sent_at,omitempty"`
	DeliveredAt          *time.Time `json:"delivered_at,omitempty"`
	Note                 *string    `json:"note,omitempty" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time  `json:"updated_at" gorm:"not null"`
}

func (Delivery) TableName() string { return "deliveries" }
