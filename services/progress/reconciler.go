package progress

import (
	"time"

	courseModels "lms/models/course"
)

// ItemSummary is the reconciled view of all progress rows sharing one
// (user, content item) key. Summarize is commutative and idempotent: the
// same multiset of rows yields the same summary regardless of order or
// duplicate count, and a passing result recorded in any duplicate is never
// discarded.
type ItemSummary struct {
	UserID        uint
	ContentItemID uint

	BestPercentage     float64
	Attempts           int
	Completed          bool
	CompletedAt        *time.Time
	ProgressPercentage float64

	// Latest* fields come from the row with the most recent activity.
	LatestPercentage *float64
	LatestScore      *float64
	LatestPassed     *bool

	// Canonical is the earliest-created row, the stable patch target.
	// Duplicates are the remaining rows, due for cleanup.
	Canonical  *courseModels.ProgressRecord
	Duplicates []courseModels.ProgressRecord
}

// rowBestPercentage resolves the best percentage a single row represents:
// bestScore, else percentage, else score/maxScore*100, else 0.
func rowBestPercentage(r *courseModels.ProgressRecord) float64 {
	if r.BestScore != nil {
		return *r.BestScore
	}
	if r.Percentage != nil {
		return *r.Percentage
	}
	if r.Score != nil && r.MaxScore != nil && *r.MaxScore > 0 {
		return *r.Score / *r.MaxScore * 100
	}
	return 0
}

// activityTime is the row's most recent activity: lastAttemptAt, else
// completedAt, else creation time.
func activityTime(r *courseModels.ProgressRecord) time.Time {
	if r.LastAttemptAt != nil {
		return *r.LastAttemptAt
	}
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	return r.CreatedAt
}

// earlier reports whether row a was created before row b, with the lower ID
// breaking ties so canonical selection stays deterministic.
func earlier(a, b *courseModels.ProgressRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// later is the counterpart used for latest-activity selection; ties go to
// the higher ID.
func later(a, b *courseModels.ProgressRecord) bool {
	at, bt := activityTime(a), activityTime(b)
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.ID > b.ID
}

// Summarize reconciles all progress rows for one (user, content item) key.
// The input slice is not modified.
func Summarize(rows []courseModels.ProgressRecord) ItemSummary {
	var s ItemSummary
	if len(rows) == 0 {
		return s
	}

	canonical := &rows[0]
	latest := &rows[0]
	for i := range rows {
		r := &rows[i]
		if earlier(r, canonical) {
			canonical = r
		}
		if later(r, latest) {
			latest = r
		}

		if best := rowBestPercentage(r); best > s.BestPercentage {
			s.BestPercentage = best
		}
		// Max, never summed: duplicates must not inflate the count.
		if r.Attempts > s.Attempts {
			s.Attempts = r.Attempts
		}
		if r.ProgressPercentage > s.ProgressPercentage {
			s.ProgressPercentage = r.ProgressPercentage
		}
		if r.Completed {
			s.Completed = true
			if r.CompletedAt != nil && (s.CompletedAt == nil || r.CompletedAt.Before(*s.CompletedAt)) {
				t := *r.CompletedAt
				s.CompletedAt = &t
			}
		}
	}

	s.UserID = canonical.UserID
	s.ContentItemID = canonical.ContentItemID
	s.LatestPercentage = latest.Percentage
	s.LatestScore = latest.Score
	s.LatestPassed = latest.LatestPassed

	c := *canonical
	s.Canonical = &c
	for i := range rows {
		if rows[i].ID != canonical.ID {
			s.Duplicates = append(s.Duplicates, rows[i])
		}
	}
	return s
}

// SummarizeCourse groups rows by content item and reconciles each group,
// for (user, course) scoped reads.
func SummarizeCourse(rows []courseModels.ProgressRecord) map[uint]ItemSummary {
	grouped := make(map[uint][]courseModels.ProgressRecord)
	for _, r := range rows {
		grouped[r.ContentItemID] = append(grouped[r.ContentItemID], r)
	}

	summaries := make(map[uint]ItemSummary, len(grouped))
	for itemID, group := range grouped {
		summaries[itemID] = Summarize(group)
	}
	return summaries
}
