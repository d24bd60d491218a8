package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// ContentWithOptions represents content enriched for the learner view
type ContentWithOptions struct {
	courseModels.ContentItem
	MCQOptions  []courseModels.MCQOption `json:"mcq_options,omitempty"`
	IsCompleted bool                     `json:"is_completed"`
	BestScore   float64                  `json:"best_score"`
	Attempts    int                      `json:"attempts"`
}

// GetCourseContent lists published content for an enrolled learner, with
// per-item reconciled progress and quiz options (answers stripped).
func GetCourseContent(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	// Check if course exists and is published
	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	// Check enrollment
	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this course first!", nil)
	}

	var contents []courseModels.ContentItem
	if err := database.Database.Db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Order("lesson_id asc, order_index asc").Find(&contents).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course content!", nil)
	}

	// All progress reads go through the reconciler so duplicate rows never
	// leak into the learner view.
	var rows []courseModels.ProgressRecord
	database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Find(&rows)
	summaries := progress.SummarizeCourse(rows)

	result := make([]ContentWithOptions, len(contents))
	for i, content := range contents {
		result[i] = ContentWithOptions{
			ContentItem: content,
		}

		if summary, ok := summaries[content.ID]; ok {
			result[i].IsCompleted = summary.Completed
			result[i].BestScore = summary.BestPercentage
			result[i].Attempts = summary.Attempts
		}

		// Attach quiz options for quiz-bearing kinds, without answers
		if courseModels.ResolveKind(content.ContentType).HasQuiz() {
			var options []courseModels.MCQOption
			database.Database.Db.Where("content_item_id = ? AND is_deleted = ?", content.ID, false).Order("order_index asc").Find(&options)
			// Remove IsCorrect from options for users (don't show answers)
			for j := range options {
				options[j].IsCorrect = false
			}
			result[i].MCQOptions = options
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course content fetched successfully!", fiber.Map{
		"course":   course,
		"contents": result,
	})
}
