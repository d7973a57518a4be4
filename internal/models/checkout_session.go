package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CheckoutState is the lifecycle of one embedded checkout attempt.
type CheckoutState string

const (
	CheckoutStateRequested CheckoutState = "requested"
	CheckoutStateMounted   CheckoutState = "mounted"
	CheckoutStateSucceeded CheckoutState = "succeeded"
	CheckoutStateAbandoned CheckoutState = "abandoned"
)

// CheckoutSession is the audit record of one embedded checkout attempt.
// The client secret itself is never persisted; only the checkout session
// reference and the request that produced it. IsActive is cleared the
// moment the attempt succeeds, is abandoned, or is swept by the worker.
type CheckoutSession struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `json:"user_id"`
	PriceID   string          `gorm:"type:varchar(100)" json:"price_id"`
	SessionID string          `gorm:"type:varchar(100);index" json:"session_id"`
	State     CheckoutState   `gorm:"type:varchar(20);not null" json:"state"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	Request   json.RawMessage `gorm:"type:jsonb" json:"request"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
