// Package certificate evaluates course completion and issues signed
// completion certificates. Issuance is effectively exactly-once per
// (user, course): the already-issued check and the insert happen inside the
// same call, a unique index backs the pair, and any redundant invocation
// arriving after issuance observes the existing row first.
package certificate

import (
	"errors"
	"fmt"
	"log"
	"time"

	courseModels "lms/models/course"
	"lms/services/grading"
	"lms/services/progress"

	"gorm.io/gorm"
)

var ErrCertificateNotFound = errors.New("certificate not found")

// Eligibility reasons returned as result values, never as errors.
const (
	ReasonNotCertification = "course does not issue certificates"
	ReasonNoGradedItems    = "course has no graded items"
	ReasonItemsMissing     = "not all graded items have been attempted"
	ReasonItemsNotPassed   = "not all graded items meet their passing score"
	ReasonGradeTooLow      = "overall grade is below the course passing grade"
)

// Issuer checks certificate eligibility and issues certificates.
type Issuer struct {
	DB         *gorm.DB
	SigningKey string

	// AfterIssue runs fire-and-forget after a successful issuance, for
	// email/webhook notification. Never awaited.
	AfterIssue func(cert courseModels.Certificate)

	now func() time.Time
}

// NewIssuer returns an Issuer backed by db, signing with key.
func NewIssuer(db *gorm.DB, key string) *Issuer {
	return &Issuer{DB: db, SigningKey: key, now: time.Now}
}

// EligibilityResult is the outcome of an eligibility check. Ineligibility
// carries a reason string; only infrastructure failures surface as errors.
type EligibilityResult struct {
	Eligible          bool    `json:"eligible"`
	AlreadyIssued     bool    `json:"already_issued"`
	CertificateNumber string  `json:"certificate_number,omitempty"`
	OverallGrade      float64 `json:"overall_grade,omitempty"`
	Reason            string  `json:"reason,omitempty"`
}

// CheckEligibility walks the per-(user, course) state machine:
// not-eligible -> eligible-unissued -> issued (terminal). An existing
// certificate short-circuits with the stored identifier and no
// recomputation. Otherwise eligibility is evaluated and, when met, the
// certificate is issued within the same call.
func (i *Issuer) CheckEligibility(userID, courseID uint) (*EligibilityResult, error) {
	db := i.DB

	var existing courseModels.Certificate
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&existing).Error; err == nil {
		return &EligibilityResult{
			Eligible:          true,
			AlreadyIssued:     true,
			CertificateNumber: existing.CertificateNumber,
			OverallGrade:      existing.OverallGrade,
		}, nil
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return nil, progress.ErrCourseNotFound
	}
	if !course.IsCertification {
		return &EligibilityResult{Reason: ReasonNotCertification}, nil
	}

	var gradedItems []courseModels.ContentItem
	if err := db.Where("course_id = ? AND is_graded = ? AND is_deleted = ? AND is_published = ?", courseID, true, false, true).Find(&gradedItems).Error; err != nil {
		return nil, err
	}
	if len(gradedItems) == 0 {
		return &EligibilityResult{Reason: ReasonNoGradedItems}, nil
	}

	var rows []courseModels.ProgressRecord
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Find(&rows).Error; err != nil {
		return nil, err
	}
	summaries := progress.SummarizeCourse(rows)

	items := make([]grading.GradedItem, 0, len(gradedItems))
	scores := make(map[uint]grading.ItemScore)
	allPassed := true
	for _, item := range gradedItems {
		maxPoints := float64(100)
		if item.MaxPoints != nil && *item.MaxPoints > 0 {
			maxPoints = *item.MaxPoints
		}
		items = append(items, grading.GradedItem{
			ContentItemID: item.ID,
			MaxPoints:     maxPoints,
			PassingScore:  item.PassingScore,
		})

		summary, ok := summaries[item.ID]
		if !ok {
			continue
		}
		scores[item.ID] = grading.ItemScore{BestPercentage: summary.BestPercentage}
		if summary.BestPercentage < grading.EffectivePassingScore(course.PassingGrade, item.PassingScore) {
			allPassed = false
		}
	}

	grade := grading.CalculateStudentGrade(items, scores, course.PassingGrade)
	if grade.MissingCount > 0 {
		return &EligibilityResult{Reason: ReasonItemsMissing, OverallGrade: grade.OverallGrade}, nil
	}
	if !allPassed {
		return &EligibilityResult{Reason: ReasonItemsNotPassed, OverallGrade: grade.OverallGrade}, nil
	}

	passingGrade := grading.EffectivePassingScore(course.PassingGrade, nil)
	if grade.OverallGrade < passingGrade {
		return &EligibilityResult{Reason: ReasonGradeTooLow, OverallGrade: grade.OverallGrade}, nil
	}

	return i.issue(userID, courseID, grade.OverallGrade)
}

// issue signs and inserts the certificate row. A concurrent issuance racing
// this insert loses against the unique (user, course) index; the loser
// re-reads and returns the winner's certificate.
func (i *Issuer) issue(userID, courseID uint, overallGrade float64) (*EligibilityResult, error) {
	now := i.now()
	number, err := GenerateID(i.SigningKey, courseID, userID, now.UnixMilli(), overallGrade)
	if err != nil {
		return nil, err
	}

	cert := courseModels.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: number,
		OverallGrade:      overallGrade,
		IssuedAt:          now,
	}
	if err := i.DB.Create(&cert).Error; err != nil {
		var existing courseModels.Certificate
		if ferr := i.DB.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&existing).Error; ferr == nil {
			return &EligibilityResult{
				Eligible:          true,
				AlreadyIssued:     true,
				CertificateNumber: existing.CertificateNumber,
				OverallGrade:      existing.OverallGrade,
			}, nil
		}
		return nil, err
	}

	if i.AfterIssue != nil {
		go i.AfterIssue(cert)
	}

	return &EligibilityResult{
		Eligible:          true,
		CertificateNumber: cert.CertificateNumber,
		OverallGrade:      cert.OverallGrade,
	}, nil
}

// Reevaluate re-runs the eligibility check after a graded write. It is
// dispatched fire-and-forget and tolerates redundant invocation: once a
// certificate exists every later call short-circuits on the stored row.
func (i *Issuer) Reevaluate(userID, courseID uint) {
	res, err := i.CheckEligibility(userID, courseID)
	if err != nil {
		log.Printf("[CERTIFICATE] Re-evaluation failed for user %d course %d: %v", userID, courseID, err)
		return
	}
	if res.Eligible && !res.AlreadyIssued {
		log.Printf("[CERTIFICATE] Issued certificate %s for user %d course %d", res.CertificateNumber, userID, courseID)
	}
}

// GetCertificate fetches a certificate by its public number and verifies
// its signature.
func (i *Issuer) GetCertificate(number string) (*courseModels.Certificate, error) {
	var cert courseModels.Certificate
	if err := i.DB.Where("certificate_number = ? AND is_deleted = ?", number, false).First(&cert).Error; err != nil {
		return nil, ErrCertificateNotFound
	}

	valid, err := VerifyID(i.SigningKey, cert.CourseID, cert.UserID, cert.OverallGrade, cert.CertificateNumber)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("certificate %d failed signature verification", cert.ID)
	}
	return &cert, nil
}
