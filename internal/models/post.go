package models

import "time"

type Post struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"size:280;not null" json:"content"`
	AuthorID int    `gorm:"not null;index" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	IsHidden bool   `gorm:"not null;default:false;index" json:"isHidden"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
