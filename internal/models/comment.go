package models

import "time"

type Comment struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"size:500;not null" json:"content"`
	UserID   int    `gorm:"not null;index" json:"userId"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`
	PostID   int    `gorm:"not null;index" json:"postId"`
	ParentID *int   `gorm:"index" json:"parentId,omitempty"` // nil for top-level comments

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
