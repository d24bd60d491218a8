package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RateLimitBucket is a persisted sliding-window request log for one bucket key.
// Timestamps holds unix-millisecond request times as a JSON array; entries
// older than the window are pruned on every read.
type RateLimitBucket struct {
	gorm.Model
	BucketKey   string         `json:"bucket_key" gorm:"uniqueIndex;not null"`
	MaxRequests int            `json:"max_requests"`
	WindowMs    int64          `json:"window_ms"`
	Timestamps  datatypes.JSON `json:"timestamps"`
	LastRequest *time.Time     `json:"last_request"`
}
