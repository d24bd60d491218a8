package course

import "gorm.io/gorm"

// ContentKind is the closed set of content variants. The string stored on a
// row is resolved into a kind once at the boundary via ResolveKind; call
// sites branch on the kind, never on the raw string.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindText
	KindVideo
	KindQuiz
	KindVideoQuiz // quiz embedded in a video
	KindTextQuiz  // quiz embedded in a text block
)

const (
	ContentTypeText      = "TEXT"
	ContentTypeVideo     = "VIDEO"
	ContentTypeQuiz      = "QUIZ"
	ContentTypeVideoQuiz = "VIDEO_QUIZ"
	ContentTypeTextQuiz  = "TEXT_QUIZ"
)

// ResolveKind maps a stored content type string to its ContentKind.
func ResolveKind(contentType string) ContentKind {
	switch contentType {
	case ContentTypeText:
		return KindText
	case ContentTypeVideo:
		return KindVideo
	case ContentTypeQuiz:
		return KindQuiz
	case ContentTypeVideoQuiz:
		return KindVideoQuiz
	case ContentTypeTextQuiz:
		return KindTextQuiz
	}
	return KindUnknown
}

// HasQuiz reports whether the kind carries a gradable quiz.
func (k ContentKind) HasQuiz() bool {
	return k == KindQuiz || k == KindVideoQuiz || k == KindTextQuiz
}

// ContentItem represents a piece of content within a lesson
type ContentItem struct {
	gorm.Model
	CourseID     uint     `json:"course_id" gorm:"index;not null"`
	LessonID     uint     `json:"lesson_id" gorm:"index;not null"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ContentType  string   `json:"content_type" gorm:"default:'TEXT'"`
	TextContent  string   `json:"text_content" gorm:"type:text"`
	VideoURL     string   `json:"video_url"`
	OrderIndex   int      `json:"order_index" gorm:"default:0"`
	IsGraded     bool     `json:"is_graded" gorm:"default:false"`
	MaxPoints    *float64 `json:"max_points"`
	PassingScore *float64 `json:"passing_score"` // percentage (0-100)
	// Pointer so an explicit false is written on insert; a plain bool with a
	// default tag is dropped from the INSERT as a zero value and the column
	// default silently wins.
	AllowRetakes *bool    `json:"allow_retakes" gorm:"default:true"`
	IsPublished  bool     `json:"is_published" gorm:"default:false"`
	IsDeleted    bool     `gorm:"default:false"`
}

// MCQOption represents an option for a quiz question within a content item
type MCQOption struct {
	gorm.Model
	ContentItemID uint   `json:"content_item_id" gorm:"index;not null"`
	OptionText    string `json:"option_text"`
	IsCorrect     bool   `json:"is_correct" gorm:"default:false"`
	OrderIndex    int    `json:"order_index" gorm:"default:0"`
	IsDeleted     bool   `gorm:"default:false"`
}
