package store

import (
	"time"
)

// Message kinds. The set is open; only SOS affects behavior (resend
// scheduling and pending selection).
const (
	KindSOS   = "SOS"
	KindAlert = "ALERT"
	KindText  = "TEXT"
)

// Message is the unit of communication and persistence. The ID is the sole
// deduplication key; Forwarded and Acknowledged only ever transition false
// to true, and ResendCount only increments.
type Message struct {
	ID          string `gorm:"primaryKey"`
	OriginID    string
	OriginLabel string
	DestID      string
	Kind        string
	Payload     string
	CreatedAt   time.Time
	ReceivedAt  time.Time
	Hops        int
	TTL         int
	Forwarded   bool
	Acknowledged bool
	ResendCount int
}

// Alert is a cached third-party alert record, keyed by a feed-assigned id.
type Alert struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Body      string
	Source    string
	FetchedAt time.Time
}
