package courseValidator

import (
	"encoding/json"
	"lms/middleware"
	"lms/services/progress"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RecordCompletion validates the completion payload. Score bounds against
// the resolved max score are the recorder's concern; this layer only
// rejects shapes that can never be valid.
func RecordCompletion() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course ID is required in the URL!", nil)
		}
		contentID, ok := parseIDParam(c, "content_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Content ID is required in the URL!", nil)
		}

		reqData := new(struct {
			Score              *float64        `json:"score"`
			MaxScore           *float64        `json:"max_score"`
			Answers            json.RawMessage `json:"answers"`
			ProgressPercentage *float64        `json:"progress_percentage"`
		})

		if err := c.BodyParser(reqData); err != nil && len(c.Body()) > 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Score != nil && *reqData.Score < 0 {
			errors["score"] = "Score must not be negative!"
		}
		if reqData.MaxScore != nil && *reqData.MaxScore <= 0 {
			errors["max_score"] = "Max score must be positive!"
		}
		if reqData.ProgressPercentage != nil && (*reqData.ProgressPercentage < 0 || *reqData.ProgressPercentage > 100) {
			errors["progress_percentage"] = "Progress percentage must be between 0 and 100!"
		}
		if len(reqData.Answers) > 0 && reqData.Score == nil {
			errors["answers"] = "Answers must be accompanied by a score!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCompletion", &progress.RecordInput{
			ContentItemID:      uint(contentID),
			Score:              reqData.Score,
			MaxScore:           reqData.MaxScore,
			Answers:            reqData.Answers,
			ProgressPercentage: reqData.ProgressPercentage,
		})
		c.Locals("courseID", courseID)
		c.Locals("contentID", contentID)
		return c.Next()
	}
}

// LessonAnswer validates the typed-answer payload and resolves the answer
// union once, here at the boundary.
func LessonAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course ID is required in the URL!", nil)
		}
		lessonID, ok := parseIDParam(c, "lesson_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Lesson ID is required in the URL!", nil)
		}

		reqData := new(struct {
			Answer          json.RawMessage `json:"answer"`
			Score           *float64        `json:"score"`
			MaxScore        *float64        `json:"max_score"`
			ExpectedVersion *int            `json:"expected_version"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if len(reqData.Answer) == 0 {
			errors["answer"] = "Answer is required!"
		}
		if reqData.Score != nil && *reqData.Score < 0 {
			errors["score"] = "Score must not be negative!"
		}
		if reqData.ExpectedVersion != nil && *reqData.ExpectedVersion < 0 {
			errors["expected_version"] = "Expected version must not be negative!"
		}

		var answer *progress.Answer
		if len(reqData.Answer) > 0 {
			parsed, err := progress.ParseAnswer(reqData.Answer)
			if err != nil {
				errors["answer"] = err.Error()
			} else {
				answer = parsed
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLessonAnswer", &progress.LessonAnswerInput{
			LessonID:        uint(lessonID),
			Answer:          answer,
			Score:           reqData.Score,
			MaxScore:        reqData.MaxScore,
			ExpectedVersion: reqData.ExpectedVersion,
		})
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// CourseID validates the course id path parameter.
func CourseID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid course ID is required in the URL!", nil)
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// EnrollmentList validates optional pagination query params.
func EnrollmentList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		// Set defaults if not provided
		defaultPage := 1
		defaultLimit := 10
		if reqData.Page == nil || *reqData.Page < 1 {
			reqData.Page = &defaultPage
		}
		if reqData.Limit == nil || *reqData.Limit < 1 {
			reqData.Limit = &defaultLimit
		}

		c.Locals("validatedEnrollmentList", reqData)
		return c.Next()
	}
}

func parseIDParam(c *fiber.Ctx, name string) (int, bool) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
