package social

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// flip inverts the relation described by match inside tx and reports whether
// it is present afterwards. Creation tolerates a row inserted concurrently.
func flip[T any](tx *gorm.DB, match *T) (bool, error) {
	var existing T
	err := tx.Where(match).Take(&existing).Error
	switch {
	case err == nil:
		if err := tx.Where(match).Delete(new(T)).Error; err != nil {
			return false, err
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(match).Error; err != nil {
			if isUniqueViolation(err) {
				return true, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// ToggleLike likes the post if the actor has not, and unlikes it otherwise.
func (s *Service) ToggleLike(ctx context.Context, actor Actor, postID int) (res views.ToggleResult, err error) {
	defer s.track("like", time.Now(), &err)

	var present bool
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID, true); err != nil {
			return err
		}
		var ferr error
		present, ferr = flip(tx, &models.Like{UserID: actor.ID, PostID: postID})
		if ferr != nil {
			return internal("toggle like", ferr)
		}
		return nil
	})
	if err != nil {
		return views.ToggleResult{}, err
	}
	if present {
		return views.ToggleResult{Action: views.ActionLiked, Message: "Post liked"}, nil
	}
	return views.ToggleResult{Action: views.ActionUnliked, Message: "Post unliked"}, nil
}

// ToggleRepost reposts or un-reposts someone else's post.
func (s *Service) ToggleRepost(ctx context.Context, actor Actor, postID int) (res views.ToggleResult, err error) {
	defer s.track("repost", time.Now(), &err)

	var present bool
	err = s.tx(ctx, func(tx *gorm.DB) error {
		post, err := visiblePost(tx, actor, postID, true)
		if err != nil {
			return err
		}
		if post.AuthorID == actor.ID {
			return apperrors.Rejected("You cannot repost your own posts")
		}
		present, err = flip(tx, &models.Repost{UserID: actor.ID, PostID: postID})
		if err != nil {
			return internal("toggle repost", err)
		}
		return nil
	})
	if err != nil {
		return views.ToggleResult{}, err
	}
	if present {
		return views.ToggleResult{Action: views.ActionReposted, Message: "Post reposted"}, nil
	}
	return views.ToggleResult{Action: views.ActionUnreposted, Message: "Post unreposted"}, nil
}

// ToggleCommentLike likes or unlikes a comment on a post the actor can see.
func (s *Service) ToggleCommentLike(ctx context.Context, actor Actor, commentID int) (res views.ToggleResult, err error) {
	defer s.track("comment_like", time.Now(), &err)

	var present bool
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var comment models.Comment
		if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Comment not found")
			}
			return internal("load comment", err)
		}
		if _, err := visiblePost(tx, actor, comment.PostID, false); err != nil {
			return apperrors.NotFound("Comment not found")
		}
		var ferr error
		present, ferr = flip(tx, &models.CommentLike{UserID: actor.ID, CommentID: commentID})
		if ferr != nil {
			return internal("toggle comment like", ferr)
		}
		return nil
	})
	if err != nil {
		return views.ToggleResult{}, err
	}
	if present {
		return views.ToggleResult{Action: views.ActionLiked, Message: "Comment liked"}, nil
	}
	return views.ToggleResult{Action: views.ActionUnliked, Message: "Comment unliked"}, nil
}

// ToggleFollow follows or unfollows an active user other than the actor.
func (s *Service) ToggleFollow(ctx context.Context, actor Actor, targetID int) (res views.FollowResult, err error) {
	defer s.track("follow", time.Now(), &err)

	if targetID == actor.ID {
		return views.FollowResult{}, apperrors.Rejected("Cannot follow yourself")
	}

	var present bool
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var target models.User
		if err := forUpdate(tx).First(&target, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("User not found")
			}
			return internal("load user", err)
		}
		if !target.IsActive {
			return apperrors.NotFound("User not found")
		}
		var ferr error
		present, ferr = flip(tx, &models.Follow{FollowerID: actor.ID, FollowingID: targetID})
		if ferr != nil {
			return internal("toggle follow", ferr)
		}
		return nil
	})
	if err != nil {
		return views.FollowResult{}, err
	}
	return views.FollowResult{IsFollowing: present}, nil
}

// ToggleVisibility hides or shows a post. Only its author may call it.
func (s *Service) ToggleVisibility(ctx context.Context, actor Actor, postID int) (res views.VisibilityResult, err error) {
	defer s.track("visibility", time.Now(), &err)

	var hidden bool
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Post not found")
			}
			return internal("load post", err)
		}
		if post.AuthorID != actor.ID {
			if post.IsHidden {
				return apperrors.NotFound("Post not found")
			}
			return apperrors.Forbidden("Only the author can change a post's visibility")
		}
		hidden = !post.IsHidden
		if err := tx.Model(&post).Update("is_hidden", hidden).Error; err != nil {
			return internal("update visibility", err)
		}
		return nil
	})
	if err != nil {
		return views.VisibilityResult{}, err
	}

	s.notify(EventPostVisibility, map[string]any{"id": postID, "isHidden": hidden})
	return views.VisibilityResult{Success: true, IsHidden: hidden}, nil
}
