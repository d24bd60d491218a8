package progress

import (
	"math/rand"
	"testing"
	"time"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func timePtr(t time.Time) *time.Time {
	return &t
}

func makeRow(id uint, created time.Time) courseModels.ProgressRecord {
	r := courseModels.ProgressRecord{
		UserID:        1,
		CourseID:      1,
		ContentItemID: 10,
	}
	r.ID = id
	r.CreatedAt = created
	return r
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Nil(t, s.Canonical)
	assert.Empty(t, s.Duplicates)
	assert.Zero(t, s.BestPercentage)
}

func TestSummarizeBestPercentageFallbacks(t *testing.T) {
	base := time.Now()

	withBest := makeRow(1, base)
	withBest.BestScore = floatPtr(40)

	withPercentage := makeRow(2, base.Add(time.Second))
	withPercentage.Percentage = floatPtr(55)

	withRaw := makeRow(3, base.Add(2*time.Second))
	withRaw.Score = floatPtr(30)
	withRaw.MaxScore = floatPtr(40) // 75%

	s := Summarize([]courseModels.ProgressRecord{withBest, withPercentage, withRaw})
	assert.Equal(t, 75.0, s.BestPercentage)
}

func TestSummarizeOrderIndependence(t *testing.T) {
	base := time.Now().Truncate(time.Second)

	a := makeRow(1, base)
	a.BestScore = floatPtr(80)
	a.Attempts = 2
	a.Completed = true
	a.CompletedAt = timePtr(base.Add(time.Minute))

	b := makeRow(2, base.Add(time.Second))
	b.BestScore = floatPtr(95)
	b.Attempts = 3
	b.ProgressPercentage = 60
	b.LastAttemptAt = timePtr(base.Add(2 * time.Minute))
	b.Percentage = floatPtr(95)
	b.LatestPassed = boolPtr(true)

	c := makeRow(3, base.Add(2*time.Second))
	c.Completed = true
	c.CompletedAt = timePtr(base.Add(30 * time.Second))

	rows := []courseModels.ProgressRecord{a, b, c}
	want := Summarize(rows)

	for i := 0; i < 10; i++ {
		shuffled := make([]courseModels.ProgressRecord, len(rows))
		copy(shuffled, rows)
		rand.Shuffle(len(shuffled), func(x, y int) { shuffled[x], shuffled[y] = shuffled[y], shuffled[x] })

		got := Summarize(shuffled)
		assert.Equal(t, want.BestPercentage, got.BestPercentage)
		assert.Equal(t, want.Attempts, got.Attempts)
		assert.Equal(t, want.Completed, got.Completed)
		assert.Equal(t, want.CompletedAt.Unix(), got.CompletedAt.Unix())
		assert.Equal(t, want.Canonical.ID, got.Canonical.ID)
		assert.Len(t, got.Duplicates, 2)
	}
}

func TestSummarizeNeverDiscardsPassingDuplicate(t *testing.T) {
	base := time.Now()

	canonical := makeRow(1, base)
	canonical.BestScore = floatPtr(50)

	duplicate := makeRow(2, base.Add(time.Second))
	duplicate.BestScore = floatPtr(90)
	duplicate.Completed = true
	duplicate.CompletedAt = timePtr(base.Add(time.Second))

	s := Summarize([]courseModels.ProgressRecord{canonical, duplicate})
	assert.Equal(t, uint(1), s.Canonical.ID, "canonical must be the earliest created row")
	assert.Equal(t, 90.0, s.BestPercentage, "passing result from a duplicate must survive")
	assert.True(t, s.Completed)
}

func TestSummarizeAttemptsMaxNotSum(t *testing.T) {
	base := time.Now()

	a := makeRow(1, base)
	a.Attempts = 4
	b := makeRow(2, base.Add(time.Second))
	b.Attempts = 4 // same attempt count duplicated by a race

	s := Summarize([]courseModels.ProgressRecord{a, b})
	assert.Equal(t, 4, s.Attempts, "duplicates must not inflate attempts")
}

func TestSummarizeLatestFieldsFromNewestActivity(t *testing.T) {
	base := time.Now()

	older := makeRow(1, base)
	older.Percentage = floatPtr(90)
	older.LastAttemptAt = timePtr(base.Add(time.Minute))

	newer := makeRow(2, base.Add(time.Second))
	newer.Percentage = floatPtr(40)
	newer.LatestPassed = boolPtr(false)
	newer.LastAttemptAt = timePtr(base.Add(2 * time.Minute))

	s := Summarize([]courseModels.ProgressRecord{older, newer})
	assert.Equal(t, 40.0, *s.LatestPercentage, "latest fields come from the most recent activity")
	assert.Equal(t, 90.0, s.BestPercentage)
}

func TestSummarizeCanonicalTieBreaksOnID(t *testing.T) {
	created := time.Now().Truncate(time.Second)

	a := makeRow(7, created)
	b := makeRow(3, created)

	s := Summarize([]courseModels.ProgressRecord{a, b})
	assert.Equal(t, uint(3), s.Canonical.ID)

	s = Summarize([]courseModels.ProgressRecord{b, a})
	assert.Equal(t, uint(3), s.Canonical.ID)
}

func TestSummarizeCourseGroupsPerItem(t *testing.T) {
	base := time.Now()

	first := makeRow(1, base)
	first.ContentItemID = 10
	first.BestScore = floatPtr(70)

	second := makeRow(2, base)
	second.ContentItemID = 20
	second.BestScore = floatPtr(90)

	summaries := SummarizeCourse([]courseModels.ProgressRecord{first, second})
	assert.Len(t, summaries, 2)
	assert.Equal(t, 70.0, summaries[10].BestPercentage)
	assert.Equal(t, 90.0, summaries[20].BestPercentage)
}
