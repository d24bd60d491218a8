package progress

import (
	courseModels "lms/models/course"
	"lms/services/grading"
)

// CourseProgressResult is the reconciled view of a user's standing in a
// course, including a certificate eligibility preview (no issuance).
type CourseProgressResult struct {
	TotalItems             int            `json:"total_items"`
	CompletedItems         int            `json:"completed_items"`
	ProgressPercentage     float64        `json:"progress_percentage"`
	Grade                  grading.Result `json:"grade"`
	EligibleForCertificate bool           `json:"eligible_for_certificate"`
}

// CourseProgress reconciles all of a user's progress rows in a course into
// one summary. All reads go through the reconciler, so transient duplicate
// rows never distort the counts.
func (rec *Recorder) CourseProgress(userID, courseID uint) (*CourseProgressResult, error) {
	db := rec.DB

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return nil, ErrCourseNotFound
	}

	var items []courseModels.ContentItem
	if err := db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).Find(&items).Error; err != nil {
		return nil, err
	}

	var rows []courseModels.ProgressRecord
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Find(&rows).Error; err != nil {
		return nil, err
	}
	summaries := SummarizeCourse(rows)

	result := &CourseProgressResult{TotalItems: len(items)}

	var gradedItems []grading.GradedItem
	scores := make(map[uint]grading.ItemScore)
	allGradedPassed := true

	for _, item := range items {
		summary, attempted := summaries[item.ID]
		if attempted && summary.Completed {
			result.CompletedItems++
		}
		if !item.IsGraded {
			continue
		}

		maxPoints := float64(100)
		if item.MaxPoints != nil && *item.MaxPoints > 0 {
			maxPoints = *item.MaxPoints
		}
		gradedItems = append(gradedItems, grading.GradedItem{
			ContentItemID: item.ID,
			MaxPoints:     maxPoints,
			PassingScore:  item.PassingScore,
		})
		if !attempted {
			allGradedPassed = false
			continue
		}
		scores[item.ID] = grading.ItemScore{BestPercentage: summary.BestPercentage}
		if summary.BestPercentage < grading.EffectivePassingScore(course.PassingGrade, item.PassingScore) {
			allGradedPassed = false
		}
	}

	if result.TotalItems > 0 {
		result.ProgressPercentage = float64(result.CompletedItems) / float64(result.TotalItems) * 100
	}

	result.Grade = grading.CalculateStudentGrade(gradedItems, scores, course.PassingGrade)

	result.EligibleForCertificate = course.IsCertification &&
		len(gradedItems) > 0 &&
		result.Grade.MissingCount == 0 &&
		allGradedPassed &&
		result.Grade.OverallGrade >= grading.EffectivePassingScore(course.PassingGrade, nil)

	return result, nil
}
