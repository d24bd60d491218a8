package progress

import (
	"encoding/json"
	"errors"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"

	"gorm.io/datatypes"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrConcurrentModification signals an expected-version mismatch; the
	// caller should reread the record and retry.
	ErrConcurrentModification = errors.New("progress was modified concurrently, reread and retry")
)

// LessonAnswerInput is one typed-answer submission against a lesson.
type LessonAnswerInput struct {
	UserID   uint
	LessonID uint
	Answer   *Answer
	Score    *float64
	MaxScore *float64

	// ExpectedVersion, when set, must match the stored version for the
	// write to proceed. This is the one progress path with true
	// compare-and-swap semantics.
	ExpectedVersion *int
}

// LessonAnswerResult reports the merged lesson progress state.
type LessonAnswerResult struct {
	Attempts  int     `json:"attempts"`
	BestScore float64 `json:"best_score"`
	Completed bool    `json:"completed"`
	Passed    bool    `json:"passed"`
	Version   int     `json:"version"`
}

// RecordLessonAnswer records a typed answer against the per-lesson progress
// table with the same merge semantics as content-item completions, plus
// optimistic locking via ExpectedVersion.
func (rec *Recorder) RecordLessonAnswer(in LessonAnswerInput) (*LessonAnswerResult, error) {
	db := rec.DB

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", in.UserID, false).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND is_deleted = ?", in.LessonID, false).First(&lesson).Error; err != nil {
		return nil, ErrLessonNotFound
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", lesson.CourseID, false).First(&course).Error; err != nil {
		return nil, ErrCourseNotFound
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", in.UserID, lesson.CourseID, false).First(&enrollment).Error; err != nil {
		return nil, ErrNotEnrolled
	}

	if in.Answer == nil {
		return nil, ErrInvalidAnswer
	}
	if err := in.Answer.Validate(); err != nil {
		return nil, err
	}

	maxScore := float64(100)
	if in.MaxScore != nil && *in.MaxScore > 0 {
		maxScore = *in.MaxScore
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > maxScore) {
		return nil, ErrInvalidScore
	}

	now := rec.now()
	passingScore := grading.EffectivePassingScore(course.PassingGrade, nil)
	answerJSON, err := json.Marshal(in.Answer)
	if err != nil {
		return nil, err
	}

	var existing courseModels.LessonProgress
	found := db.Where("user_id = ? AND lesson_id = ? AND is_deleted = ?", in.UserID, in.LessonID, false).First(&existing).Error == nil

	if in.ExpectedVersion != nil && found && existing.Version != *in.ExpectedVersion {
		return nil, ErrConcurrentModification
	}
	if in.ExpectedVersion != nil && !found && *in.ExpectedVersion != 0 {
		return nil, ErrConcurrentModification
	}

	var newPercentage float64
	scored := in.Score != nil
	if scored {
		newPercentage = *in.Score / maxScore * 100
	}

	best := float64(0)
	if found && existing.BestScore != nil {
		best = *existing.BestScore
	}
	if scored && newPercentage > best {
		best = newPercentage
	}

	completed := true
	if course.IsCertification && scored {
		completed = (found && existing.Completed) || best >= passingScore
	}
	completedAt := existing.CompletedAt
	if completed && completedAt == nil {
		completedAt = &now
	}

	passed := best >= passingScore
	attempts := 1
	if found {
		attempts = existing.Attempts + 1
	}

	if !found {
		record := courseModels.LessonProgress{
			UserID:        in.UserID,
			CourseID:      lesson.CourseID,
			LessonID:      in.LessonID,
			Completed:     completed,
			CompletedAt:   completedAt,
			Attempts:      attempts,
			BestScore:     &best,
			Passed:        passed,
			AnswerKind:    string(in.Answer.Kind),
			AnswerData:    datatypes.JSON(answerJSON),
			LastAttemptAt: &now,
			Version:       1,
		}
		if err := db.Create(&record).Error; err != nil {
			return nil, err
		}
		return &LessonAnswerResult{Attempts: attempts, BestScore: best, Completed: completed, Passed: passed, Version: 1}, nil
	}

	// Conditional update on the read version: a racing writer that bumped
	// the version first makes this update match zero rows.
	newVersion := existing.Version + 1
	res := db.Model(&courseModels.LessonProgress{}).
		Where("id = ? AND version = ?", existing.ID, existing.Version).
		Updates(map[string]interface{}{
			"completed":       completed,
			"completed_at":    completedAt,
			"attempts":        attempts,
			"best_score":      best,
			"passed":          passed,
			"answer_kind":     string(in.Answer.Kind),
			"answer_data":     datatypes.JSON(answerJSON),
			"last_attempt_at": now,
			"version":         newVersion,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentModification
	}

	return &LessonAnswerResult{Attempts: attempts, BestScore: best, Completed: completed, Passed: passed, Version: newVersion}, nil
}
