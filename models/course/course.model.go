package course

import "gorm.io/gorm"

// Course represents a learning course
type Course struct {
	gorm.Model
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Author          string   `json:"author"`
	Status          string   `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	IsPublished     bool     `json:"is_published" gorm:"default:false"`
	IsCertification bool     `json:"is_certification" gorm:"default:false"`
	PassingGrade    *float64 `json:"passing_grade"` // course-wide passing grade (0-100)
	DefaultMaxScore *float64 `json:"default_max_score"`
	IsDeleted       bool     `gorm:"default:false"`
}

// Lesson represents a section within a course; the typed-answer progress
// path is keyed per lesson rather than per content item.
type Lesson struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsDeleted   bool   `gorm:"default:false"`
}
