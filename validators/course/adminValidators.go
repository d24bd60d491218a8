package courseValidator

import (
	"lms/middleware"
	courseModels "lms/models/course"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var invalidChars = regexp.MustCompile(`[<>{}]`)

func validateTitle(title string, errors map[string]string) {
	if title == "" {
		errors["title"] = "Title is required!"
	} else {
		if len(title) < 3 {
			errors["title"] = "Title must be at least 3 characters long!"
		}
		if len(title) > 100 {
			errors["title"] = "Title must not exceed 100 characters!"
		}
		if invalidChars.MatchString(title) {
			errors["title"] = "Title contains invalid characters (e.g., <, >, {, })!"
		}
	}
}

func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(courseModels.Course)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Normalize and sanitize inputs
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)

		validateTitle(reqData.Title, errors)

		if reqData.Description != "" && len(reqData.Description) > 1000 {
			errors["description"] = "Description must not exceed 1000 characters!"
		}

		if reqData.Status == "" {
			reqData.Status = "DRAFT"
		} else if reqData.Status != "DRAFT" && reqData.Status != "ACTIVE" && reqData.Status != "INACTIVE" {
			errors["status"] = "Status must be DRAFT, ACTIVE or INACTIVE!"
		}

		if reqData.PassingGrade != nil && (*reqData.PassingGrade < 0 || *reqData.PassingGrade > 100) {
			errors["passing_grade"] = "Passing grade must be between 0 and 100!"
		}
		if reqData.IsCertification && reqData.PassingGrade == nil {
			errors["passing_grade"] = "Certification courses require a passing grade!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

func CreateLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid course ID is required in the URL!", nil)
		}

		reqData := new(courseModels.Lesson)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		reqData.Title = strings.TrimSpace(reqData.Title)
		validateTitle(reqData.Title, errors)

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLesson", reqData)
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func CreateContentItem() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid course ID is required in the URL!", nil)
		}

		reqData := new(courseModels.ContentItem)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		reqData.Title = strings.TrimSpace(reqData.Title)
		validateTitle(reqData.Title, errors)

		if reqData.LessonID == 0 {
			errors["lesson_id"] = "Lesson ID is required!"
		}

		// The content type string resolves into the closed kind set here,
		// once, instead of being re-inspected downstream.
		if courseModels.ResolveKind(reqData.ContentType) == courseModels.KindUnknown {
			errors["content_type"] = "Content type must be TEXT, VIDEO, QUIZ, VIDEO_QUIZ or TEXT_QUIZ!"
		}

		if reqData.IsGraded {
			if reqData.MaxPoints == nil || *reqData.MaxPoints <= 0 {
				errors["max_points"] = "Graded content requires positive max points!"
			}
			if reqData.PassingScore != nil && (*reqData.PassingScore < 0 || *reqData.PassingScore > 100) {
				errors["passing_score"] = "Passing score must be between 0 and 100!"
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedContentItem", reqData)
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func CreateMCQOptions() fiber.Handler {
	return func(c *fiber.Ctx) error {
		contentID, ok := parseIDParam(c, "content_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid content ID is required in the URL!", nil)
		}

		reqData := new(struct {
			Options []courseModels.MCQOption `json:"options"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if len(reqData.Options) < 2 {
			errors["options"] = "At least two options are required!"
		}
		hasCorrect := false
		for _, opt := range reqData.Options {
			if strings.TrimSpace(opt.OptionText) == "" {
				errors["options"] = "Option text must not be empty!"
			}
			if opt.IsCorrect {
				hasCorrect = true
			}
		}
		if !hasCorrect {
			errors["options"] = "At least one option must be correct!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedMCQOptions", &reqData.Options)
		c.Locals("contentID", contentID)
		return c.Next()
	}
}
