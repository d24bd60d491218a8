package models

import "gorm.io/gorm"

// User represents a learner or admin account
type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `json:"email" gorm:"uniqueIndex"`
	Mobile    string `json:"mobile"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role" gorm:"default:'USER'"` // USER, ADMIN
	IsDeleted bool   `gorm:"default:false"`
}
