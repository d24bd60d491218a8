// Package ratelimit implements a persisted sliding-window request log. The
// limiter is advisory: Check and Record are separate round trips against the
// store, so a concurrent burst can admit slightly more than the configured
// maximum within one window.
package ratelimit

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"lms/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Buckets empty for longer than this are removed by Sweep.
const emptyBucketTTL = time.Hour

var ErrBucketNotFound = errors.New("rate limit bucket not found")

// Limiter checks and records requests against persisted buckets.
type Limiter struct {
	DB  *gorm.DB
	now func() time.Time
}

// NewLimiter returns a Limiter backed by db.
func NewLimiter(db *gorm.DB) *Limiter {
	return &Limiter{DB: db, now: time.Now}
}

// Decision is the outcome of a rate-limit check. Remaining is -1 when no
// bucket exists yet, since the policy is unknown until the first Record.
type Decision struct {
	Allowed      bool  `json:"allowed"`
	RetryAfterMs int64 `json:"retry_after_ms"`
	Remaining    int   `json:"remaining"`
}

// Check reports whether a request on bucketKey would currently be allowed.
// It does not consume a slot.
func (l *Limiter) Check(bucketKey string) (*Decision, error) {
	var bucket models.RateLimitBucket
	if err := l.DB.Where("bucket_key = ?", bucketKey).First(&bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Decision{Allowed: true, Remaining: -1}, nil
		}
		return nil, err
	}

	nowMs := l.now().UnixMilli()
	survivors := prune(decodeTimestamps(bucket.Timestamps), nowMs, bucket.WindowMs)
	return decide(survivors, nowMs, bucket.MaxRequests, bucket.WindowMs), nil
}

// Record consumes a slot on bucketKey when allowed, creating the bucket
// lazily on first use. The window is re-pruned and re-checked before the
// append, which narrows the check/record race without closing it.
func (l *Limiter) Record(bucketKey string, maxRequests int, windowMs int64) (*Decision, error) {
	now := l.now()
	nowMs := now.UnixMilli()

	var bucket models.RateLimitBucket
	err := l.DB.Where("bucket_key = ?", bucketKey).First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bucket = models.RateLimitBucket{BucketKey: bucketKey}
	} else if err != nil {
		return nil, err
	}

	bucket.MaxRequests = maxRequests
	bucket.WindowMs = windowMs

	survivors := prune(decodeTimestamps(bucket.Timestamps), nowMs, windowMs)
	decision := decide(survivors, nowMs, maxRequests, windowMs)
	if !decision.Allowed {
		return decision, nil
	}

	survivors = append(survivors, nowMs)
	bucket.Timestamps = encodeTimestamps(survivors)
	bucket.LastRequest = &now

	if bucket.ID == 0 {
		err = l.DB.Create(&bucket).Error
	} else {
		err = l.DB.Save(&bucket).Error
	}
	if err != nil {
		return nil, err
	}

	decision.Remaining = maxRequests - len(survivors)
	return decision, nil
}

// Sweep prunes every bucket and deletes buckets that have been empty for
// over an hour. Run periodically by the maintenance scheduler.
func (l *Limiter) Sweep() error {
	var buckets []models.RateLimitBucket
	if err := l.DB.Find(&buckets).Error; err != nil {
		return err
	}

	now := l.now()
	nowMs := now.UnixMilli()
	removed := 0

	for i := range buckets {
		bucket := &buckets[i]
		timestamps := decodeTimestamps(bucket.Timestamps)
		survivors := prune(timestamps, nowMs, bucket.WindowMs)

		if len(survivors) == 0 {
			idle := now.Sub(bucket.UpdatedAt)
			if bucket.LastRequest != nil {
				idle = now.Sub(*bucket.LastRequest)
			}
			if idle > emptyBucketTTL {
				if err := l.DB.Delete(bucket).Error; err != nil {
					log.Printf("[RATELIMIT] Failed to delete bucket %s: %v", bucket.BucketKey, err)
					continue
				}
				removed++
				continue
			}
		}

		if len(survivors) != len(timestamps) {
			bucket.Timestamps = encodeTimestamps(survivors)
			if err := l.DB.Save(bucket).Error; err != nil {
				log.Printf("[RATELIMIT] Failed to prune bucket %s: %v", bucket.BucketKey, err)
			}
		}
	}

	if removed > 0 {
		log.Printf("[RATELIMIT] Sweep removed %d empty buckets", removed)
	}
	return nil
}

func decide(survivors []int64, nowMs int64, maxRequests int, windowMs int64) *Decision {
	if len(survivors) < maxRequests {
		return &Decision{Allowed: true, Remaining: maxRequests - len(survivors)}
	}

	oldest := survivors[0]
	for _, ts := range survivors {
		if ts < oldest {
			oldest = ts
		}
	}
	retryAfter := oldest + windowMs - nowMs
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Decision{Allowed: false, RetryAfterMs: retryAfter}
}

func prune(timestamps []int64, nowMs, windowMs int64) []int64 {
	cutoff := nowMs - windowMs
	survivors := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts > cutoff {
			survivors = append(survivors, ts)
		}
	}
	return survivors
}

func decodeTimestamps(raw datatypes.JSON) []int64 {
	if len(raw) == 0 {
		return nil
	}
	var timestamps []int64
	if err := json.Unmarshal(raw, &timestamps); err != nil {
		log.Printf("[RATELIMIT] Corrupt timestamp log, resetting: %v", err)
		return nil
	}
	return timestamps
}

func encodeTimestamps(timestamps []int64) datatypes.JSON {
	raw, _ := json.Marshal(timestamps)
	return datatypes.JSON(raw)
}
