package authRoutes

import (
	authController "lms/controllers/auth"
	"lms/database"
	"lms/middleware"
	"lms/services/ratelimit"
	authValidator "lms/validators/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes registers authentication routes. Login is rate limited
// per client to slow down credential stuffing.
func SetupAuthRoutes(app *fiber.App) {
	limiter := ratelimit.NewLimiter(database.Database.Db)

	auth := app.Group("/auth")

	auth.Post("/signup", authValidator.Signup(), authController.Signup)
	auth.Post("/login",
		middleware.RateLimit(limiter, "auth:login", 10, 60_000),
		authValidator.Login(),
		authController.Login,
	)
}
