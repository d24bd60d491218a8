package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressRecord tracks a user's progress on one content item. Logically at
// most one row exists per (user, course, content item), but concurrent writes
// can leave transient duplicates; every reader goes through the reconciler,
// which designates the earliest-created row as the canonical patch target.
type ProgressRecord struct {
	gorm.Model
	UserID        uint `json:"user_id" gorm:"index:idx_progress_key;not null"`
	CourseID      uint `json:"course_id" gorm:"index:idx_progress_key;not null"`
	ContentItemID uint `json:"content_item_id" gorm:"index:idx_progress_key;not null"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`

	Attempts    int        `json:"attempts" gorm:"default:0"`
	Attempted   bool       `json:"attempted" gorm:"default:false"`
	AttemptedAt *time.Time `json:"attempted_at"`

	BestScore  *float64 `json:"best_score"` // best percentage so far (0-100)
	Score      *float64 `json:"score"`      // latest raw score
	MaxScore   *float64 `json:"max_score"`
	Percentage *float64 `json:"percentage"` // latest percentage

	Passed       bool  `json:"passed" gorm:"default:false"`
	LatestPassed *bool `json:"latest_passed"`

	ProgressPercentage float64    `json:"progress_percentage" gorm:"default:0"`
	LastAttemptAt      *time.Time `json:"last_attempt_at"`

	Version   int  `json:"version" gorm:"default:0"`
	IsDeleted bool `gorm:"default:false"`
}

// QuizAttempt is an immutable, append-only record of one quiz submission.
// AttemptNumber is computed from a fresh count at submission time; under
// racing submissions it is best effort, not a strict sequence.
type QuizAttempt struct {
	gorm.Model
	AttemptID     string         `json:"attempt_id" gorm:"uniqueIndex;not null"`
	UserID        uint           `json:"user_id" gorm:"index;not null"`
	CourseID      uint           `json:"course_id" gorm:"index;not null"`
	ContentItemID uint           `json:"content_item_id" gorm:"index;not null"`
	AttemptNumber int            `json:"attempt_number" gorm:"default:1"`
	Answers       datatypes.JSON `json:"answers"`
	Score         float64        `json:"score"`
	MaxScore      float64        `json:"max_score"`
	Percentage    float64        `json:"percentage"`
	Passed        bool           `json:"passed" gorm:"default:false"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}
