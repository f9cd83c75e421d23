package domain

import "time"

// Idempotency records the result of a previously processed request, keyed by
// (user_id, scope, key). Replaying the same key within the TTL returns the
// stored assistant message instead of calling the model again.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"column:idem_key;type:varchar(200);not null;uniqueIndex:ux_user_scope_key,priority:3"`
	MessageID uint64    `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// IdempotencyClaim asks a store to record an idempotency key alongside the
// write it guards, in the same transaction.
type IdempotencyClaim struct {
	Scope  string
	Key    string
	Status int
	TTL    time.Duration
}
