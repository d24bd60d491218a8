// Package grading computes weighted course grades from reconciled progress
// summaries. It performs no I/O and holds no state.
package grading

// DefaultPassingScore applies when neither the course nor the item carries
// a passing threshold.
const DefaultPassingScore = 70

// GradedItem is the grading view of a graded content item.
type GradedItem struct {
	ContentItemID uint
	MaxPoints     float64
	PassingScore  *float64
}

// ItemScore is the reconciled best result for one graded item.
type ItemScore struct {
	BestPercentage float64
}

// Result is the outcome of a grade calculation. Missing items are graded
// items with no summary at all; they are excluded from both earned and
// possible points rather than scored as zero, and they block eligibility.
type Result struct {
	OverallGrade   float64 `json:"overall_grade"`
	AttemptedCount int     `json:"attempted_count"`
	PassedCount    int     `json:"passed_count"`
	FailedCount    int     `json:"failed_count"`
	MissingCount   int     `json:"missing_count"`
}

// EffectivePassingScore resolves an item's passing threshold: the course
// passing grade when present, else the item's own, else the default.
func EffectivePassingScore(coursePassingGrade, itemPassingScore *float64) float64 {
	if coursePassingGrade != nil {
		return *coursePassingGrade
	}
	if itemPassingScore != nil {
		return *itemPassingScore
	}
	return DefaultPassingScore
}

// CalculateStudentGrade computes the weighted overall grade across attempted
// items only. With nothing attempted the overall grade is 0.
func CalculateStudentGrade(items []GradedItem, scores map[uint]ItemScore, coursePassingGrade *float64) Result {
	var res Result
	var earned, possible float64

	for _, item := range items {
		score, ok := scores[item.ContentItemID]
		if !ok {
			res.MissingCount++
			continue
		}

		res.AttemptedCount++
		maxPoints := item.MaxPoints
		if maxPoints <= 0 {
			maxPoints = 100
		}
		earned += score.BestPercentage / 100 * maxPoints
		possible += maxPoints

		if score.BestPercentage >= EffectivePassingScore(coursePassingGrade, item.PassingScore) {
			res.PassedCount++
		} else {
			res.FailedCount++
		}
	}

	if possible > 0 {
		res.OverallGrade = earned / possible * 100
	}
	return res
}
