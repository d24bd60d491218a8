package controllers

import (
	"errors"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// RecordCompletion records a completion/attempt for a content item. The
// write validates, heals any duplicated progress rows for the key, then
// patches the canonical row; identical retries are safe.
func RecordCompletion(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedCompletion").(*progress.RecordInput)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	reqData.UserID = userID

	result, err := newRecorder().RecordCompletion(*reqData)
	if err != nil {
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Completion recorded successfully!", result)
}

// RecordLessonAnswer records a typed answer against a lesson, honoring the
// optional expected version for optimistic locking.
func RecordLessonAnswer(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedLessonAnswer").(*progress.LessonAnswerInput)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	reqData.UserID = userID

	result, err := newRecorder().RecordLessonAnswer(*reqData)
	if err != nil {
		if errors.Is(err, progress.ErrConcurrentModification) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Progress was modified concurrently. Reload and try again.", nil)
		}
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer recorded successfully!", result)
}

// GetCourseProgress returns the reconciled progress view for the current
// user in a course.
func GetCourseProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	result, err := newRecorder().CourseProgress(userID, uint(courseID))
	if err != nil {
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", result)
}

// RequestContentGeneration accepts a content-generation request. The
// orchestration itself runs elsewhere; this entrypoint only applies the
// rate limit (via route middleware) and acknowledges the request.
func RequestContentGeneration(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	return middleware.JsonResponse(c, fiber.StatusAccepted, true, "Generation request accepted!", fiber.Map{
		"user_id":   userID,
		"course_id": courseID,
		"status":    "QUEUED",
	})
}

// progressErrorResponse maps recorder errors onto HTTP statuses. Validation
// failures are non-retryable user errors; everything else is infrastructure.
func progressErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progress.ErrUserNotFound):
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	case errors.Is(err, progress.ErrContentNotFound), errors.Is(err, progress.ErrCourseNotFound), errors.Is(err, progress.ErrLessonNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, progress.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this course first!", nil)
	case errors.Is(err, progress.ErrInvalidScore), errors.Is(err, progress.ErrInvalidAnswer):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	case errors.Is(err, progress.ErrRetakesDisabled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Retakes are not allowed for this content item!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record progress!", nil)
}
