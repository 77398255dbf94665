package social

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// Feed returns the viewer's home feed: visible posts by followed users,
// admins and the viewer, newest first.
func (s *Service) Feed(ctx context.Context, actor Actor) ([]views.PostView, error) {
	if actor.ID == 0 {
		return []views.PostView{}, nil
	}

	db := s.db.WithContext(ctx)
	followed := db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", actor.ID)
	admins := db.Model(&models.User{}).Select("id").Where("is_admin = ?", true)

	var posts []models.Post
	err := db.Preload("Author").
		Where("is_hidden = ?", false).
		Where(s.db.Where("author_id IN (?)", followed).
			Or("author_id IN (?)", admins).
			Or("author_id = ?", actor.ID)).
		Order("created_at DESC, id DESC").
		Limit(s.feedLimit).
		Find(&posts).Error
	if err != nil {
		return nil, internal("load feed", err)
	}

	out, err := projectPosts(db, posts)
	if err != nil {
		return nil, internal("project feed", err)
	}
	return out, nil
}

// CreatePost publishes a post authored by the actor.
func (s *Service) CreatePost(ctx context.Context, actor Actor, content string) (view views.PostView, err error) {
	defer s.track("create_post", time.Now(), &err)

	if actor.ID == 0 {
		return views.PostView{}, apperrors.Unauthorized("Unauthorized")
	}
	content, err = s.checkContent(content, MaxPostLength, "Post")
	if err != nil {
		return views.PostView{}, err
	}

	db := s.db.WithContext(ctx)
	post := models.Post{Content: content, AuthorID: actor.ID}
	if err := db.Create(&post).Error; err != nil {
		return views.PostView{}, internal("create post", err)
	}
	if err := db.Preload("Author").First(&post, post.ID).Error; err != nil {
		return views.PostView{}, internal("reload post", err)
	}

	projected, err := projectPosts(db, []models.Post{post})
	if err != nil {
		return views.PostView{}, internal("project post", err)
	}

	s.notify(EventPostCreated, projected[0])
	return projected[0], nil
}

// DeletePost removes a post with its likes, reposts and comments. Only the
// author or an admin may delete.
func (s *Service) DeletePost(ctx context.Context, actor Actor, postID int) (res views.DeleteResult, err error) {
	defer s.track("delete_post", time.Now(), &err)

	err = s.tx(ctx, func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Post not found")
			}
			return internal("load post", err)
		}
		if post.AuthorID != actor.ID && !actor.IsAdmin {
			if post.IsHidden {
				return apperrors.NotFound("Post not found")
			}
			return apperrors.Forbidden("You can only delete your own posts")
		}

		comments := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		steps := []struct {
			what  string
			model any
			query string
			arg   any
		}{
			{"comment likes", &models.CommentLike{}, "comment_id IN (?)", comments},
			{"comments", &models.Comment{}, "post_id = ?", postID},
			{"likes", &models.Like{}, "post_id = ?", postID},
			{"reposts", &models.Repost{}, "post_id = ?", postID},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
				return internal("delete "+step.what, err)
			}
		}
		if err := tx.Delete(&post).Error; err != nil {
			return internal("delete post", err)
		}
		return nil
	})
	if err != nil {
		return views.DeleteResult{}, err
	}

	s.notify(EventPostDeleted, map[string]any{"id": postID})
	return views.DeleteResult{Success: true}, nil
}

// Tab returns one of a user's profile lists as seen by the actor.
func (s *Service) Tab(ctx context.Context, actor Actor, userID int, tab views.Tab) ([]views.PostView, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, internal("load user", err)
	}

	var (
		out []views.PostView
		err error
	)
	switch tab {
	case views.TabPosts:
		out, err = s.authoredPosts(db, userID, false)
	case views.TabHidden:
		if actor.ID != userID {
			return nil, apperrors.Forbidden("You can only view your own hidden posts")
		}
		out, err = s.authoredPosts(db, userID, true)
	case views.TabLikes:
		out, err = s.likedPosts(db, actor, userID)
	case views.TabReposts:
		out, err = s.repostedPosts(db, actor, userID)
	case views.TabComments:
		out, err = s.commentedPosts(db, actor, userID)
	default:
		return nil, apperrors.NotFound("Unknown tab")
	}
	if err != nil {
		return nil, internal("load "+string(tab)+" tab", err)
	}
	return out, nil
}

func (s *Service) authoredPosts(db *gorm.DB, userID int, hidden bool) ([]views.PostView, error) {
	var posts []models.Post
	err := db.Preload("Author").
		Where("author_id = ? AND is_hidden = ?", userID, hidden).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return projectPosts(db, posts)
}

// visibleTo restricts a posts query to posts the actor may see.
func visibleTo(db *gorm.DB, actor Actor) *gorm.DB {
	return db.Where("is_hidden = ? OR author_id = ?", false, actor.ID)
}

// postsByID loads the visible posts among ids, keyed by id.
func postsByID(db *gorm.DB, actor Actor, ids []int) (map[int]views.PostView, error) {
	out := make(map[int]views.PostView, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var posts []models.Post
	if err := visibleTo(db.Preload("Author").Where("id IN ?", ids), actor).Find(&posts).Error; err != nil {
		return nil, err
	}
	projected, err := projectPosts(db, posts)
	if err != nil {
		return nil, err
	}
	for _, p := range projected {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) likedPosts(db *gorm.DB, actor Actor, userID int) ([]views.PostView, error) {
	var likes []models.Like
	if err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&likes).Error; err != nil {
		return nil, err
	}
	ids := make([]int, len(likes))
	for i, l := range likes {
		ids[i] = l.PostID
	}
	byID, err := postsByID(db, actor, ids)
	if err != nil {
		return nil, err
	}

	out := make([]views.PostView, 0, len(likes))
	for _, l := range likes {
		p, ok := byID[l.PostID]
		if !ok {
			continue
		}
		at := l.CreatedAt
		p.LikedAt = &at
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) repostedPosts(db *gorm.DB, actor Actor, userID int) ([]views.PostView, error) {
	var reposts []models.Repost
	if err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&reposts).Error; err != nil {
		return nil, err
	}
	ids := make([]int, len(reposts))
	for i, r := range reposts {
		ids[i] = r.PostID
	}
	byID, err := postsByID(db, actor, ids)
	if err != nil {
		return nil, err
	}

	out := make([]views.PostView, 0, len(reposts))
	for _, r := range reposts {
		p, ok := byID[r.PostID]
		if !ok {
			continue
		}
		at := r.CreatedAt
		p.RepostedAt = &at
		out = append(out, p)
	}
	return out, nil
}

// commentedPosts lists each post the user commented on once, ordered by the
// user's most recent comment on it.
func (s *Service) commentedPosts(db *gorm.DB, actor Actor, userID int) ([]views.PostView, error) {
	var lastIDs []int
	err := db.Model(&models.Comment{}).
		Where("user_id = ?", userID).
		Group("post_id").
		Order("MAX(id) DESC").
		Pluck("MAX(id)", &lastIDs).Error
	if err != nil {
		return nil, err
	}
	if len(lastIDs) == 0 {
		return []views.PostView{}, nil
	}

	var latest []models.Comment
	if err := db.Where("id IN ?", lastIDs).Find(&latest).Error; err != nil {
		return nil, err
	}
	byComment := make(map[int]models.Comment, len(latest))
	ids := make([]int, 0, len(latest))
	for _, c := range latest {
		byComment[c.ID] = c
		ids = append(ids, c.PostID)
	}
	byID, err := postsByID(db, actor, ids)
	if err != nil {
		return nil, err
	}

	out := make([]views.PostView, 0, len(lastIDs))
	for _, id := range lastIDs {
		c := byComment[id]
		p, ok := byID[c.PostID]
		if !ok {
			continue
		}
		at := c.CreatedAt
		p.LastCommentedAt = &at
		out = append(out, p)
	}
	return out, nil
}
