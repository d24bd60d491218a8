package progress

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

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Lesson{},
		&courseModels.ContentItem{},
		&courseModels.Enrollment{},
		&courseModels.ProgressRecord{},
		&courseModels.QuizAttempt{},
		&courseModels.LessonProgress{},
	))
	return db
}

type fixture struct {
	db     *gorm.DB
	user   models.User
	course courseModels.Course
	lesson courseModels.Lesson
	item   courseModels.ContentItem
}

// seedCourse creates a certification course with one graded quiz item
// (maxPoints 100, passingScore 70) and an active enrollment.
func seedCourse(t *testing.T, db *gorm.DB, mutate func(*courseModels.Course, *courseModels.ContentItem)) fixture {
	t.Helper()

	user := models.User{Name: "Student", Email: "student@example.com"}
	require.NoError(t, db.Create(&user).Error)

	course := courseModels.Course{
		Title:           "Go Fundamentals",
		Status:          "ACTIVE",
		IsPublished:     true,
		IsCertification: true,
		PassingGrade:    floatPtr(70),
	}
	item := courseModels.ContentItem{
		Title:        "Final Quiz",
		ContentType:  courseModels.ContentTypeQuiz,
		IsGraded:     true,
		MaxPoints:    floatPtr(100),
		PassingScore: floatPtr(70),
		AllowRetakes: boolPtr(true),
		IsPublished:  true,
	}
	if mutate != nil {
		mutate(&course, &item)
	}
	require.NoError(t, db.Create(&course).Error)

	lesson := courseModels.Lesson{CourseID: course.ID, Title: "Week 1"}
	require.NoError(t, db.Create(&lesson).Error)

	item.CourseID = course.ID
	item.LessonID = lesson.ID
	require.NoError(t, db.Create(&item).Error)

	enrollment := courseModels.Enrollment{UserID: user.ID, CourseID: course.ID, Status: "ENROLLED"}
	require.NoError(t, db.Create(&enrollment).Error)

	return fixture{db: db, user: user, course: course, lesson: lesson, item: item}
}

func record(t *testing.T, rec *Recorder, f fixture, score float64) *RecordResult {
	t.Helper()
	res, err := rec.RecordCompletion(RecordInput{
		UserID:        f.user.ID,
		ContentItemID: f.item.ID,
		Score:         floatPtr(score),
	})
	require.NoError(t, err)
	return res
}

func TestRecordCompletionValidation(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	_, err := rec.RecordCompletion(RecordInput{UserID: 999, ContentItemID: f.item.ID})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = rec.RecordCompletion(RecordInput{UserID: f.user.ID, ContentItemID: 999})
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = rec.RecordCompletion(RecordInput{UserID: f.user.ID, ContentItemID: f.item.ID, Score: floatPtr(120)})
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = rec.RecordCompletion(RecordInput{UserID: f.user.ID, ContentItemID: f.item.ID, Score: floatPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestRecordCompletionRequiresEnrollment(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)

	other := models.User{Name: "Outsider", Email: "outsider@example.com"}
	require.NoError(t, db.Create(&other).Error)

	_, err := NewRecorder(db).RecordCompletion(RecordInput{UserID: other.ID, ContentItemID: f.item.ID})
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestRecordCompletionIdempotence(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	first := record(t, rec, f, 80)
	second := record(t, rec, f, 80)

	assert.Equal(t, first.BestScore, second.BestScore)
	assert.Equal(t, first.Completed, second.Completed)
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, 1, first.Attempts)
	assert.Equal(t, 2, second.Attempts, "attempts increase by exactly one per call")

	var count int64
	db.Model(&courseModels.ProgressRecord{}).Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordCompletionMonotonicBestScore(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	record(t, rec, f, 85)
	res := record(t, rec, f, 40)

	assert.Equal(t, 85.0, res.BestScore, "best score never decreases")
	assert.True(t, res.Completed, "completion never unflips after a lower retake")
	assert.True(t, res.Passed)
}

// Scenario: pass after retake. 65 then 75 against passing score 70.
func TestRecordCompletionPassAfterRetake(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	res := record(t, rec, f, 65)
	assert.False(t, res.Completed)
	assert.False(t, res.Passed)

	res = record(t, rec, f, 75)
	assert.Equal(t, 75.0, res.BestScore)
	assert.True(t, res.Passed)
	assert.True(t, res.Completed)

	progress, err := rec.CourseProgress(f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, progress.Grade.OverallGrade)
	assert.True(t, progress.EligibleForCertificate)
}

// Scenario: attendance item. Ungraded text in a non-certification course
// completes immediately without any score.
func TestRecordCompletionAttendanceItem(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, func(c *courseModels.Course, item *courseModels.ContentItem) {
		c.IsCertification = false
		c.PassingGrade = nil
		item.ContentType = courseModels.ContentTypeText
		item.IsGraded = false
		item.MaxPoints = nil
		item.PassingScore = nil
	})

	rec := NewRecorder(db)
	gradedWriteFired := false
	rec.AfterGradedWrite = func(userID, courseID uint) { gradedWriteFired = true }

	res, err := rec.RecordCompletion(RecordInput{UserID: f.user.ID, ContentItemID: f.item.ID})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.False(t, res.IsGraded)
	assert.False(t, gradedWriteFired, "ungraded writes never trigger certificate logic")
}

// Scenario: retakes disabled. The second call is rejected and nothing changes.
func TestRecordCompletionRetakeBlocked(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, func(c *courseModels.Course, item *courseModels.ContentItem) {
		item.AllowRetakes = boolPtr(false)
	})
	rec := NewRecorder(db)

	record(t, rec, f, 60)

	_, err := rec.RecordCompletion(RecordInput{
		UserID:        f.user.ID,
		ContentItemID: f.item.ID,
		Score:         floatPtr(95),
	})
	assert.ErrorIs(t, err, ErrRetakesDisabled)

	var row courseModels.ProgressRecord
	require.NoError(t, db.Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).First(&row).Error)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, 60.0, *row.BestScore, "rejected retake must not mutate state")
}

func TestRecordCompletionHealsDuplicates(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	// Simulate two racing writers that each created a row.
	now := time.Now()
	dup1 := courseModels.ProgressRecord{
		UserID: f.user.ID, CourseID: f.course.ID, ContentItemID: f.item.ID,
		Attempts: 1, BestScore: floatPtr(50), Attempted: true, LastAttemptAt: &now, Version: 1,
	}
	dup2 := courseModels.ProgressRecord{
		UserID: f.user.ID, CourseID: f.course.ID, ContentItemID: f.item.ID,
		Attempts: 1, BestScore: floatPtr(90), Completed: true, CompletedAt: &now,
		Attempted: true, LastAttemptAt: &now, Version: 1,
	}
	require.NoError(t, db.Create(&dup1).Error)
	require.NoError(t, db.Create(&dup2).Error)

	res := record(t, rec, f, 30)

	assert.Equal(t, 90.0, res.BestScore, "passing duplicate survives the merge")
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.Attempts)

	var rows []courseModels.ProgressRecord
	db.Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).Find(&rows)
	assert.Len(t, rows, 1, "exactly one row remains after self-healing")
	assert.Equal(t, dup1.ID, rows[0].ID, "the earliest-created row is the patch target")
}

func TestRecordCompletionStoresQuizAttempt(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	answers := []byte(`{"kind":"MULTIPLE_CHOICE","multiple_choice":{"selected_option_ids":[1,3]}}`)

	res, err := rec.RecordCompletion(RecordInput{
		UserID:        f.user.ID,
		ContentItemID: f.item.ID,
		Score:         floatPtr(60),
		Answers:       answers,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AttemptID)

	res, err = rec.RecordCompletion(RecordInput{
		UserID:        f.user.ID,
		ContentItemID: f.item.ID,
		Score:         floatPtr(90),
		Answers:       answers,
	})
	require.NoError(t, err)

	var attempts []courseModels.QuizAttempt
	db.Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).Order("attempt_number asc").Find(&attempts)
	assert.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.Equal(t, 2, attempts[1].AttemptNumber)
	assert.False(t, attempts[0].Passed)
	assert.True(t, attempts[1].Passed)
}

func TestRecordCompletionVersionIncrements(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	record(t, rec, f, 50)
	record(t, rec, f, 60)
	record(t, rec, f, 70)

	var row courseModels.ProgressRecord
	require.NoError(t, db.Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).First(&row).Error)
	assert.Equal(t, 3, row.Version)
}

// An explicit allow_retakes=false must survive the insert; a blank item
// falls back to the column default and stays retakeable.
func TestContentItemRetakeFlagPersistsOnCreate(t *testing.T) {
	db := testDB(t)

	locked := courseModels.ContentItem{
		CourseID: 1, LessonID: 1, Title: "One Shot",
		ContentType: courseModels.ContentTypeQuiz, AllowRetakes: boolPtr(false),
	}
	require.NoError(t, db.Create(&locked).Error)

	open := courseModels.ContentItem{
		CourseID: 1, LessonID: 1, Title: "Practice",
		ContentType: courseModels.ContentTypeQuiz,
	}
	require.NoError(t, db.Create(&open).Error)

	var stored courseModels.ContentItem
	require.NoError(t, db.First(&stored, locked.ID).Error)
	require.NotNil(t, stored.AllowRetakes)
	assert.False(t, *stored.AllowRetakes)

	var storedOpen courseModels.ContentItem
	require.NoError(t, db.First(&storedOpen, open.ID).Error)
	require.NotNil(t, storedOpen.AllowRetakes)
	assert.True(t, *storedOpen.AllowRetakes)
}

func TestRecordCompletionUpdatesEnrollmentRollup(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	// A failing attempt completes nothing on a graded certification item.
	record(t, rec, f, 40)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, 0, enrollment.CompletedContents)
	assert.Equal(t, 1, enrollment.TotalContents)
	assert.Equal(t, 0.0, enrollment.Progress)
	assert.Nil(t, enrollment.CompletedAt)

	// Passing the only item completes the course.
	record(t, rec, f, 90)

	require.NoError(t, db.Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, 1, enrollment.CompletedContents)
	assert.Equal(t, 1, enrollment.TotalContents)
	assert.Equal(t, 100.0, enrollment.Progress)
	assert.Equal(t, "COMPLETED", enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestEnrollmentRollupIgnoresDuplicateRows(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	// A leftover duplicate row on the same item must not double-count it.
	now := time.Now()
	dup := courseModels.ProgressRecord{
		UserID: f.user.ID, CourseID: f.course.ID, ContentItemID: f.item.ID,
		Attempts: 1, BestScore: floatPtr(75), Completed: true, CompletedAt: &now,
		Attempted: true, LastAttemptAt: &now, Version: 1,
	}
	require.NoError(t, db.Create(&dup).Error)

	record(t, rec, f, 80)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, 1, enrollment.CompletedContents)
	assert.Equal(t, 100.0, enrollment.Progress)
}

func TestDedupSkipsOrphanedRows(t *testing.T) {
	db := testDB(t)
	f := seedCourse(t, db, nil)
	rec := NewRecorder(db)

	record(t, rec, f, 80)

	// A row pointing at a content item that no longer exists.
	orphan := courseModels.ProgressRecord{
		UserID: f.user.ID, CourseID: f.course.ID, ContentItemID: 9999,
		Attempts: 1, Attempted: true, Version: 1,
	}
	require.NoError(t, db.Create(&orphan).Error)

	// And a duplicated pair on the healthy item.
	dup := courseModels.ProgressRecord{
		UserID: f.user.ID, CourseID: f.course.ID, ContentItemID: f.item.ID,
		Attempts: 1, BestScore: floatPtr(10), Attempted: true, Version: 1,
	}
	require.NoError(t, db.Create(&dup).Error)

	stats, err := rec.DedupAll()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.GroupsScanned)
	assert.Equal(t, 1, stats.RowsRemoved)
	assert.Equal(t, 1, stats.RowsSkipped, "orphaned rows are skipped, not fatal")

	var rows []courseModels.ProgressRecord
	db.Where("user_id = ? AND content_item_id = ?", f.user.ID, f.item.ID).Find(&rows)
	assert.Len(t, rows, 1)
}
