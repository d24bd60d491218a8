package controllers

import (
	"errors"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/certificate"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// CheckCertificateEligibility evaluates (and when eligible, issues) the
// certificate for the current user and course. Ineligibility is a normal
// result with a reason, not an error.
func CheckCertificateEligibility(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	result, err := newIssuer().CheckEligibility(userID, uint(courseID))
	if err != nil {
		if errors.Is(err, progress.ErrCourseNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}
		if errors.Is(err, certificate.ErrSigningKeyMissing) {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Certificate issuance is not configured!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to check eligibility!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Eligibility checked successfully!", result)
}

// GetCertificate fetches a certificate by its public number. The signature
// is verified before anything is returned.
func GetCertificate(c *fiber.Ctx) error {
	number := c.Params("certificate_number")
	if number == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Certificate number is required!", nil)
	}

	cert, err := newIssuer().GetCertificate(number)
	if err != nil {
		if errors.Is(err, certificate.ErrCertificateNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to verify certificate!", nil)
	}

	var course courseModels.Course
	database.Database.Db.Where("id = ?", cert.CourseID).First(&course)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate fetched successfully!", fiber.Map{
		"certificate": cert,
		"course_name": course.Title,
	})
}

// GetUserCertificates gets all certificates for the current user
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	type CertificateWithCourse struct {
		courseModels.Certificate
		CourseName string `json:"course_name"`
	}

	var certificates []courseModels.Certificate
	if err := database.Database.Db.Where("user_id = ? AND is_deleted = ?", userID, false).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	result := make([]CertificateWithCourse, len(certificates))
	for i, cert := range certificates {
		var course courseModels.Course
		database.Database.Db.Where("id = ?", cert.CourseID).First(&course)
		result[i] = CertificateWithCourse{
			Certificate: cert,
			CourseName:  course.Title,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": result,
		"total":        len(result),
	})
}
