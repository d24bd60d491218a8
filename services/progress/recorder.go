package progress

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrContentNotFound = errors.New("content item not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrNotEnrolled     = errors.New("user is not enrolled in this course")
	ErrInvalidScore    = errors.New("score must be between 0 and max score")
	ErrRetakesDisabled = errors.New("retakes are not allowed for this content item")
)

// Recorder records completions and attempts. Every call is one isolated
// write against the store; cross-call consistency comes from reconciling
// and healing duplicate rows on each write, not from locks.
type Recorder struct {
	DB *gorm.DB

	// AfterGradedWrite, when set, is dispatched fire-and-forget after a
	// successful graded write so certificate eligibility can be re-checked
	// without blocking the caller. Redundant invocations are harmless.
	AfterGradedWrite func(userID, courseID uint)

	now func() time.Time
}

// NewRecorder returns a Recorder backed by db.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{DB: db, now: time.Now}
}

// RecordInput is one completion/attempt submission.
type RecordInput struct {
	UserID             uint
	ContentItemID      uint
	Score              *float64
	MaxScore           *float64
	Answers            json.RawMessage
	ProgressPercentage *float64
}

// RecordResult reports the merged state after a successful write.
type RecordResult struct {
	AttemptID     string  `json:"attempt_id,omitempty"`
	Attempts      int     `json:"attempts"`
	BestScore     float64 `json:"best_score"`
	Completed     bool    `json:"completed"`
	Passed        bool    `json:"passed"`
	IsGraded      bool    `json:"is_graded"`
	NewPercentage float64 `json:"new_percentage"`
}

// RecordCompletion validates and records a single completion/attempt.
// Duplicate rows left behind by racing writers are reconciled and deleted
// before the canonical row is patched, so the write self-corrects.
func (rec *Recorder) RecordCompletion(in RecordInput) (*RecordResult, error) {
	db := rec.DB

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", in.UserID, false).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}

	var item courseModels.ContentItem
	if err := db.Where("id = ? AND is_deleted = ?", in.ContentItemID, false).First(&item).Error; err != nil {
		return nil, ErrContentNotFound
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", item.CourseID, false).First(&course).Error; err != nil {
		return nil, ErrCourseNotFound
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", in.UserID, item.CourseID, false).First(&enrollment).Error; err != nil {
		return nil, ErrNotEnrolled
	}

	maxScore := resolveMaxScore(in.MaxScore, &item, &course)
	if in.Score != nil {
		if *in.Score < 0 || *in.Score > maxScore {
			return nil, ErrInvalidScore
		}
	}

	// Re-read and reconcile every row for the key before writing.
	var rows []courseModels.ProgressRecord
	if err := db.Where("user_id = ? AND content_item_id = ? AND is_deleted = ?", in.UserID, in.ContentItemID, false).Find(&rows).Error; err != nil {
		return nil, err
	}

	if item.AllowRetakes != nil && !*item.AllowRetakes && len(rows) > 0 {
		return nil, ErrRetakesDisabled
	}

	summary := Summarize(rows)
	for i := range summary.Duplicates {
		if err := db.Delete(&summary.Duplicates[i]).Error; err != nil {
			return nil, err
		}
	}

	now := rec.now()
	passingScore := grading.EffectivePassingScore(course.PassingGrade, item.PassingScore)

	var newPercentage float64
	scored := in.Score != nil
	if scored {
		if maxScore > 0 {
			newPercentage = *in.Score / maxScore * 100
		}
	}

	best := summary.BestPercentage
	if scored && newPercentage > best {
		best = newPercentage
	}

	// Completion semantics: graded items in a certification course complete
	// only once the best percentage crosses the passing score and stay
	// completed afterwards. Everything else completes on the first attempt.
	graded := item.IsGraded && course.IsCertification
	completed := true
	if graded {
		completed = summary.Completed || best >= passingScore
	}

	completedAt := summary.CompletedAt
	if completed && completedAt == nil {
		completedAt = &now
	}

	progressPct := summary.ProgressPercentage
	if in.ProgressPercentage != nil && *in.ProgressPercentage > progressPct {
		progressPct = *in.ProgressPercentage
	}
	if completed && progressPct < 100 {
		progressPct = 100
	}

	var latestPassed *bool
	if scored {
		lp := newPercentage >= passingScore
		latestPassed = &lp
	}

	attempts := summary.Attempts + 1
	passed := item.IsGraded && best >= passingScore

	record := courseModels.ProgressRecord{
		UserID:             in.UserID,
		CourseID:           item.CourseID,
		ContentItemID:      in.ContentItemID,
		Completed:          completed,
		CompletedAt:        completedAt,
		Attempts:           attempts,
		Attempted:          true,
		AttemptedAt:        &now,
		BestScore:          &best,
		Score:              in.Score,
		Percentage:         nil,
		Passed:             passed,
		LatestPassed:       latestPassed,
		ProgressPercentage: progressPct,
		LastAttemptAt:      &now,
	}
	if scored {
		record.Percentage = &newPercentage
		record.MaxScore = &maxScore
	}

	if summary.Canonical == nil {
		record.Version = 1
		if err := db.Create(&record).Error; err != nil {
			return nil, err
		}
	} else {
		// This path increments version without comparing it to anything, so
		// concurrent writers are last-writer-wins here; duplicates are
		// healed on the next write rather than prevented. The lesson-answer
		// path is the one that enforces an expected version.
		record.Version = summary.Canonical.Version + 1
		patch := map[string]interface{}{
			"completed":           record.Completed,
			"completed_at":        record.CompletedAt,
			"attempts":            record.Attempts,
			"attempted":           true,
			"attempted_at":        record.AttemptedAt,
			"best_score":          record.BestScore,
			"passed":              record.Passed,
			"progress_percentage": record.ProgressPercentage,
			"last_attempt_at":     record.LastAttemptAt,
			"version":             record.Version,
		}
		// Latest-score fields only change when this call carried a score;
		// an unscored attendance call must not blank them.
		if scored {
			patch["score"] = record.Score
			patch["max_score"] = record.MaxScore
			patch["percentage"] = record.Percentage
			patch["latest_passed"] = record.LatestPassed
		}
		if err := db.Model(&courseModels.ProgressRecord{}).Where("id = ?", summary.Canonical.ID).Updates(patch).Error; err != nil {
			return nil, err
		}
	}

	rec.updateEnrollmentRollup(in.UserID, item.CourseID, now)

	result := &RecordResult{
		Attempts:      attempts,
		BestScore:     best,
		Completed:     completed,
		Passed:        passed,
		IsGraded:      item.IsGraded,
		NewPercentage: newPercentage,
	}

	// Answer data accompanying a score becomes an immutable attempt row.
	// The attempt number is a fresh count at call time, best effort under
	// races, not a guaranteed sequence.
	if scored && len(in.Answers) > 0 {
		var attemptCount int64
		db.Model(&courseModels.QuizAttempt{}).Where("user_id = ? AND content_item_id = ?", in.UserID, in.ContentItemID).Count(&attemptCount)

		attempt := courseModels.QuizAttempt{
			AttemptID:     uuid.NewString(),
			UserID:        in.UserID,
			CourseID:      item.CourseID,
			ContentItemID: in.ContentItemID,
			AttemptNumber: int(attemptCount) + 1,
			Answers:       datatypes.JSON(in.Answers),
			Score:         *in.Score,
			MaxScore:      maxScore,
			Percentage:    newPercentage,
			Passed:        latestPassed != nil && *latestPassed,
			SubmittedAt:   now,
		}
		if err := db.Create(&attempt).Error; err != nil {
			log.Printf("[PROGRESS] Failed to store quiz attempt for user %d item %d: %v", in.UserID, in.ContentItemID, err)
		} else {
			result.AttemptID = attempt.AttemptID
		}
	}

	if item.IsGraded && rec.AfterGradedWrite != nil {
		go rec.AfterGradedWrite(in.UserID, item.CourseID)
	}

	return result, nil
}

// updateEnrollmentRollup refreshes the denormalized progress fields on the
// enrollment row after a completion write. The completed count goes through
// the reconciler so duplicate rows never inflate it.
func (rec *Recorder) updateEnrollmentRollup(userID, courseID uint, now time.Time) {
	db := rec.DB

	var totalContent int64
	db.Model(&courseModels.ContentItem{}).Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).Count(&totalContent)

	var rows []courseModels.ProgressRecord
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Find(&rows).Error; err != nil {
		return
	}
	completedContent := 0
	for _, summary := range SummarizeCourse(rows) {
		if summary.Completed {
			completedContent++
		}
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return
	}

	enrollment.CompletedContents = completedContent
	enrollment.TotalContents = int(totalContent)

	if totalContent > 0 {
		enrollment.Progress = float64(completedContent) / float64(totalContent) * 100
	}

	if enrollment.Progress >= 100 {
		enrollment.Status = "COMPLETED"
		if enrollment.CompletedAt == nil {
			enrollment.CompletedAt = &now
		}
	} else if enrollment.Progress > 0 {
		enrollment.Status = "IN_PROGRESS"
	}

	if err := db.Save(&enrollment).Error; err != nil {
		log.Printf("[PROGRESS] Failed to update enrollment rollup for user %d course %d: %v", userID, courseID, err)
	}
}

// resolveMaxScore resolves the effective max score: the caller's value,
// else the item's max points, else the course default, else 100.
func resolveMaxScore(supplied *float64, item *courseModels.ContentItem, course *courseModels.Course) float64 {
	if supplied != nil && *supplied > 0 {
		return *supplied
	}
	if item.MaxPoints != nil && *item.MaxPoints > 0 {
		return *item.MaxPoints
	}
	if course.DefaultMaxScore != nil && *course.DefaultMaxScore > 0 {
		return *course.DefaultMaxScore
	}
	return 100
}
