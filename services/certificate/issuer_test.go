package certificate

import (
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func floatPtr(v float64) *float64 { return &v }

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.ContentItem{},
		&courseModels.ProgressRecord{},
		&courseModels.Certificate{},
	))
	return db
}

type certFixture struct {
	course courseModels.Course
	items  []courseModels.ContentItem
	userID uint
}

// seedCertCourse creates a certification course (passing grade 70) with the
// given number of graded items worth 100 points each.
func seedCertCourse(t *testing.T, db *gorm.DB, itemCount int) certFixture {
	t.Helper()

	user := models.User{Name: "Graduate", Email: "grad@example.com"}
	require.NoError(t, db.Create(&user).Error)

	course := courseModels.Course{
		Title:           "Distributed Systems",
		Status:          "ACTIVE",
		IsPublished:     true,
		IsCertification: true,
		PassingGrade:    floatPtr(70),
	}
	require.NoError(t, db.Create(&course).Error)

	items := make([]courseModels.ContentItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		item := courseModels.ContentItem{
			CourseID:    course.ID,
			Title:       "Graded Quiz",
			ContentType: courseModels.ContentTypeQuiz,
			IsGraded:    true,
			MaxPoints:   floatPtr(100),
			IsPublished: true,
		}
		require.NoError(t, db.Create(&item).Error)
		items = append(items, item)
	}

	return certFixture{course: course, items: items, userID: user.ID}
}

func seedBest(t *testing.T, db *gorm.DB, f certFixture, itemIdx int, best float64) {
	t.Helper()
	passed := best >= 70
	require.NoError(t, db.Create(&courseModels.ProgressRecord{
		UserID:        f.userID,
		CourseID:      f.course.ID,
		ContentItemID: f.items[itemIdx].ID,
		Completed:     passed,
		Attempted:     true,
		Attempts:      1,
		BestScore:     &best,
		Passed:        passed,
		Version:       1,
	}).Error)
}

func TestCheckEligibilityIssuesCertificate(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 2)
	seedBest(t, db, f, 0, 80)
	seedBest(t, db, f, 1, 90)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.True(t, res.Eligible)
	assert.False(t, res.AlreadyIssued)
	assert.InDelta(t, 85.0, res.OverallGrade, 0.0001)

	ok, err := VerifyID(testKey, f.course.ID, f.userID, res.OverallGrade, res.CertificateNumber)
	require.NoError(t, err)
	assert.True(t, ok, "issued number must carry a valid signature")
}

func TestCheckEligibilityExactlyOnce(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	seedBest(t, db, f, 0, 95)

	issuer := NewIssuer(db, testKey)

	first, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)
	require.False(t, first.AlreadyIssued)

	// Redundant invocations converge on the stored certificate.
	for i := 0; i < 3; i++ {
		again, err := issuer.CheckEligibility(f.userID, f.course.ID)
		require.NoError(t, err)
		assert.True(t, again.AlreadyIssued)
		assert.Equal(t, first.CertificateNumber, again.CertificateNumber)
	}

	var count int64
	require.NoError(t, db.Model(&courseModels.Certificate{}).
		Where("user_id = ? AND course_id = ?", f.userID, f.course.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckEligibilityNotCertificationCourse(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	require.NoError(t, db.Model(&courseModels.Course{}).
		Where("id = ?", f.course.ID).
		Update("is_certification", false).Error)
	seedBest(t, db, f, 0, 95)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonNotCertification, res.Reason)
}

func TestCheckEligibilityNoGradedItems(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 0)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonNoGradedItems, res.Reason)
}

func TestCheckEligibilityItemsMissing(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 2)
	seedBest(t, db, f, 0, 100)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonItemsMissing, res.Reason)
}

func TestCheckEligibilityItemsNotPassed(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 2)
	seedBest(t, db, f, 0, 100)
	seedBest(t, db, f, 1, 50)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonItemsNotPassed, res.Reason)
}

func TestCheckEligibilityGradeTooLow(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)

	// With no course-level passing grade the item threshold (50) gates each
	// item, but the overall grade is still held to the default threshold.
	require.NoError(t, db.Model(&courseModels.Course{}).
		Where("id = ?", f.course.ID).
		Update("passing_grade", nil).Error)
	require.NoError(t, db.Model(&courseModels.ContentItem{}).
		Where("id = ?", f.items[0].ID).
		Update("passing_score", 50.0).Error)
	seedBest(t, db, f, 0, 55)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonGradeTooLow, res.Reason)
	assert.InDelta(t, 55.0, res.OverallGrade, 0.0001)
}

func TestCheckEligibilityFailsClosedWithoutKey(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	seedBest(t, db, f, 0, 95)

	issuer := NewIssuer(db, "")
	_, err := issuer.CheckEligibility(f.userID, f.course.ID)
	assert.ErrorIs(t, err, ErrSigningKeyMissing)

	var count int64
	require.NoError(t, db.Model(&courseModels.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "no certificate row without a signing key")
}

func TestCheckEligibilityReconcilesDuplicates(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)

	// Duplicate rows for the same item; the best across all of them counts.
	seedBest(t, db, f, 0, 40)
	seedBest(t, db, f, 0, 88)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	assert.True(t, res.Eligible)
	assert.InDelta(t, 88.0, res.OverallGrade, 0.0001)
}

func TestCheckEligibilityAfterIssueHook(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	seedBest(t, db, f, 0, 95)

	issued := make(chan courseModels.Certificate, 1)
	issuer := NewIssuer(db, testKey)
	issuer.AfterIssue = func(cert courseModels.Certificate) { issued <- cert }

	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	select {
	case cert := <-issued:
		assert.Equal(t, res.CertificateNumber, cert.CertificateNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("AfterIssue hook was not invoked")
	}

	// An already-issued short-circuit must not fire the hook again.
	_, err = issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)
	select {
	case <-issued:
		t.Fatal("hook fired on redundant check")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGetCertificateVerifiesSignature(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	seedBest(t, db, f, 0, 95)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	cert, err := issuer.GetCertificate(res.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, f.userID, cert.UserID)
	assert.Equal(t, f.course.ID, cert.CourseID)

	_, err = issuer.GetCertificate("CERT-1-aaaaaaaa-bbbbbbbbbbbb")
	assert.ErrorIs(t, err, ErrCertificateNotFound)
}

// Tampering with the stored grade after issuance breaks verification; the
// signature binds the number to the grade it was issued for.
func TestGetCertificateDetectsTampering(t *testing.T) {
	db := testDB(t)
	f := seedCertCourse(t, db, 1)
	seedBest(t, db, f, 0, 95)

	issuer := NewIssuer(db, testKey)
	res, err := issuer.CheckEligibility(f.userID, f.course.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&courseModels.Certificate{}).
		Where("certificate_number = ?", res.CertificateNumber).
		Update("overall_grade", 100.0).Error)

	_, err = issuer.GetCertificate(res.CertificateNumber)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCertificateNotFound)
}
