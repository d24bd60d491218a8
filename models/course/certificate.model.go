package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued certificate for course completion. The
// row is immutable once inserted and unique per (user, course); its
// existence is the source of truth for "already issued".
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"index:idx_cert_user_course,unique;not null"`
	CourseID          uint      `json:"course_id" gorm:"index:idx_cert_user_course,unique;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"uniqueIndex"` // signed public identifier
	OverallGrade      float64   `json:"overall_grade"`
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}
