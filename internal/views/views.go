// Package views holds the JSON view-models exchanged between the API server
// and its clients.
package views

import "time"

type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Membership marks that UserID holds a like or repost on the enclosing entity.
type Membership struct {
	ID     int `json:"id"`
	UserID int `json:"userId"`
}

type PostCounts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Reposts  int `json:"reposts"`
}

type CommentCounts struct {
	Likes   int `json:"likes"`
	Replies int `json:"replies"`
}

type CommentView struct {
	ID        int           `json:"id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	PostID    int           `json:"postId"`
	ParentID  *int          `json:"parentId,omitempty"`
	User      UserSummary   `json:"user"`
	Likes     []Membership  `json:"likes"`
	Counts    CommentCounts `json:"counts"`
}

// PostView is a post as seen by one viewer. Comments may hold only a preview;
// Counts are always the authoritative totals.
type PostView struct {
	ID        int           `json:"id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	IsHidden  bool          `json:"isHidden"`
	Author    UserSummary   `json:"author"`
	Likes     []Membership  `json:"likes"`
	Reposts   []Membership  `json:"reposts"`
	Comments  []CommentView `json:"comments"`
	Counts    PostCounts    `json:"counts"`

	// Tab tags, set only by the matching profile tab.
	LikedAt         *time.Time `json:"likedAt,omitempty"`
	RepostedAt      *time.Time `json:"repostedAt,omitempty"`
	LastCommentedAt *time.Time `json:"lastCommentedAt,omitempty"`
}

const (
	ActionLiked      = "liked"
	ActionUnliked    = "unliked"
	ActionReposted   = "reposted"
	ActionUnreposted = "unreposted"
)

// ToggleResult reports the state a like or repost toggle ended in.
type ToggleResult struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// Present reports whether the relation exists after the toggle.
func (r ToggleResult) Present() bool {
	return r.Action == ActionLiked || r.Action == ActionReposted
}

type FollowResult struct {
	IsFollowing bool `json:"isFollowing"`
}

type VisibilityResult struct {
	Success  bool `json:"success"`
	IsHidden bool `json:"isHidden"`
}

type DeleteResult struct {
	Success bool `json:"success"`
}

type ProfileCounts struct {
	Posts     int `json:"posts"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

type Profile struct {
	UserSummary
	Email       string        `json:"email,omitempty"`
	Bio         string        `json:"bio"`
	CreatedAt   time.Time     `json:"createdAt"`
	Counts      ProfileCounts `json:"counts"`
	IsFollowing bool          `json:"isFollowing"`
}

type FollowingIDs struct {
	FollowingIDs []int `json:"followingIds"`
}

type Stats struct {
	TotalUsers  int64 `json:"totalUsers"`
	TotalPosts  int64 `json:"totalPosts"`
	ActiveUsers int64 `json:"activeUsers"`
	PostsToday  int64 `json:"postsToday"`
}

// Tab names one of the profile list views.
type Tab string

const (
	TabPosts    Tab = "posts"
	TabLikes    Tab = "likes"
	TabReposts  Tab = "reposts"
	TabComments Tab = "comments"
	TabHidden   Tab = "hidden"
)

// Tabs lists every profile tab in display order.
var Tabs = []Tab{TabPosts, TabLikes, TabReposts, TabComments, TabHidden}

// Path returns the user sub-resource serving the tab.
func (t Tab) Path() string {
	switch t {
	case TabLikes:
		return "liked-posts"
	case TabComments:
		return "commented-posts"
	case TabHidden:
		return "hidden-posts"
	default:
		return string(t)
	}
}

func (t Tab) Valid() bool {
	for _, tab := range Tabs {
		if t == tab {
			return true
		}
	}
	return false
}

// UserStatus reports an account's activation state after an admin change.
type UserStatus struct {
	ID       int  `json:"id"`
	IsActive bool `json:"isActive"`
}

// Session is the answer to a successful login.
type Session struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
