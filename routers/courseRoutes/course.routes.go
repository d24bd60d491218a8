package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/database"
	"lms/middleware"
	"lms/services/ratelimit"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes registers the learner-facing course routes.
func SetupCourseRoutes(app *fiber.App) {
	limiter := ratelimit.NewLimiter(database.Database.Db)

	course := app.Group("/course", middleware.JWTMiddleware)

	course.Post("/enroll/:course_id", courseValidator.CourseID(), controllers.EnrollInCourse)
	course.Get("/enrollments", courseValidator.EnrollmentList(), controllers.GetEnrollments)

	course.Get("/:course_id/content", courseValidator.CourseID(), controllers.GetCourseContent)
	course.Get("/:course_id/progress", courseValidator.CourseID(), controllers.GetCourseProgress)

	course.Post("/:course_id/content/:content_id/complete", courseValidator.RecordCompletion(), controllers.RecordCompletion)
	course.Post("/:course_id/lesson/:lesson_id/answer", courseValidator.LessonAnswer(), controllers.RecordLessonAnswer)

	course.Get("/:course_id/certificate/eligibility", courseValidator.CourseID(), controllers.CheckCertificateEligibility)

	// Content generation is expensive downstream work; the sliding-window
	// limiter protects it per user.
	course.Post("/:course_id/generate",
		courseValidator.CourseID(),
		middleware.RateLimit(limiter, "generation", 5, 3_600_000),
		controllers.RequestContentGeneration,
	)

	user := app.Group("/user", middleware.JWTMiddleware)
	user.Get("/certificates", controllers.GetUserCertificates)

	// Certificate lookup is public: the number itself is the credential.
	app.Get("/certificate/:certificate_number", controllers.GetCertificate)
}
