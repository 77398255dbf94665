package models

import "time"

// Like is one user's like on a post. The (UserID, PostID) pair is unique.
type Like struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_like_user_post" json:"userId"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_like_user_post;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repost is one user's repost of someone else's post.
type Repost struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_repost_user_post" json:"userId"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_repost_user_post;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentLike struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_comment_like_user_comment" json:"userId"`
	CommentID int       `gorm:"not null;uniqueIndex:idx_comment_like_user_comment;index" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&Like{},
		&Repost{},
		&CommentLike{},
		&Follow{},
	}
}
