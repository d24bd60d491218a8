package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes registers the course authoring routes.
func SetupAdminCourseRoutes(app *fiber.App) {
	admin := app.Group("/admin/course", middleware.JWTMiddleware, middleware.AdminOnly)

	admin.Post("/", courseValidator.CreateCourse(), controllers.CreateCourse)
	admin.Put("/:course_id", courseValidator.CourseID(), courseValidator.CreateCourse(), controllers.UpdateCourse)
	admin.Delete("/:course_id", courseValidator.CourseID(), controllers.DeleteCourse)

	admin.Post("/:course_id/lesson", courseValidator.CreateLesson(), controllers.CreateLesson)
	admin.Post("/:course_id/content", courseValidator.CreateContentItem(), controllers.CreateContentItem)
	admin.Post("/content/:content_id/options", courseValidator.CreateMCQOptions(), controllers.CreateMCQOptions)
}
