package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonProgress tracks a user's answer progress per lesson. Unlike
// ProgressRecord it carries a typed answer payload and honors an optional
// expected version on writes (optimistic locking).
type LessonProgress struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"index:idx_lesson_progress_key;not null"`
	CourseID uint `json:"course_id" gorm:"not null"`
	LessonID uint `json:"lesson_id" gorm:"index:idx_lesson_progress_key;not null"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`

	Attempts  int      `json:"attempts" gorm:"default:0"`
	BestScore *float64 `json:"best_score"`
	Passed    bool     `json:"passed" gorm:"default:false"`

	AnswerKind string         `json:"answer_kind"` // MULTIPLE_CHOICE, FILL_IN_BLANK, DRAG_AND_DROP
	AnswerData datatypes.JSON `json:"answer_data"`

	LastAttemptAt *time.Time `json:"last_attempt_at"`
	Version       int        `json:"version" gorm:"default:0"`
	IsDeleted     bool       `gorm:"default:false"`
}
