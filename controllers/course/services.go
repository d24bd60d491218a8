package controllers

import (
	"lms/config"
	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/certificate"
	"lms/services/progress"
	"lms/utils"
)

// newIssuer wires a certificate issuer with post-issuance notification
// (email + optional webhook), both dispatched off the request path.
func newIssuer() *certificate.Issuer {
	issuer := certificate.NewIssuer(database.Database.Db, config.AppConfig.CertSigningKey)
	issuer.AfterIssue = func(cert courseModels.Certificate) {
		db := database.Database.Db

		var user models.User
		var course courseModels.Course
		if err := db.Where("id = ?", cert.UserID).First(&user).Error; err == nil {
			if err := db.Where("id = ?", cert.CourseID).First(&course).Error; err == nil {
				utils.SendCertificateIssuedEmail(user.Email, user.Name, course.Title, cert.CertificateNumber, cert.OverallGrade, cert.IssuedAt)
			}
		}
		utils.NotifyCertificateIssued(cert.UserID, cert.CourseID, cert.CertificateNumber, cert.OverallGrade, cert.IssuedAt)
	}
	return issuer
}

// newRecorder wires a progress recorder whose graded writes trigger
// certificate re-evaluation in the background.
func newRecorder() *progress.Recorder {
	recorder := progress.NewRecorder(database.Database.Db)
	issuer := newIssuer()
	recorder.AfterGradedWrite = issuer.Reevaluate
	return recorder
}
