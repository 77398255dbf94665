package models

import "time"

// Follow records that FollowerID follows FollowingID.
type Follow struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	FollowerID  int       `gorm:"not null;uniqueIndex:idx_follower_following" json:"followerId"`
	FollowingID int       `gorm:"not null;uniqueIndex:idx_follower_following;index" json:"followingId"`
	Follower    User      `gorm:"foreignKey:FollowerID" json:"-"`
	Following   User      `gorm:"foreignKey:FollowingID" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
