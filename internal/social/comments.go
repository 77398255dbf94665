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

// Comments returns every top-level comment of a visible post, oldest first.
func (s *Service) Comments(ctx context.Context, actor Actor, postID int) ([]views.CommentView, error) {
	db := s.db.WithContext(ctx)
	if _, err := visiblePost(db, actor, postID, false); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := db.Preload("User").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, internal("load comments", err)
	}

	out, err := projectComments(db, comments)
	if err != nil {
		return nil, internal("project comments", err)
	}
	return out, nil
}

// CreateComment adds a comment, or a reply when parentID is set, to a post
// the actor can see.
func (s *Service) CreateComment(ctx context.Context, actor Actor, postID int, content string, parentID *int) (view views.CommentView, err error) {
	defer s.track("create_comment", time.Now(), &err)

	if actor.ID == 0 {
		return views.CommentView{}, apperrors.Unauthorized("Unauthorized")
	}
	content, err = s.checkContent(content, MaxCommentLength, "Comment")
	if err != nil {
		return views.CommentView{}, err
	}

	var comment models.Comment
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := visiblePost(tx, actor, postID, false); err != nil {
			return err
		}
		if parentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("Parent comment not found")
				}
				return internal("load parent comment", err)
			}
			if parent.PostID != postID {
				return apperrors.Rejected("Parent comment belongs to another post")
			}
		}

		comment = models.Comment{Content: content, UserID: actor.ID, PostID: postID, ParentID: parentID}
		if err := tx.Create(&comment).Error; err != nil {
			return internal("create comment", err)
		}
		return tx.Preload("User").First(&comment, comment.ID).Error
	})
	if err != nil {
		return views.CommentView{}, err
	}

	projected, err := projectComments(s.db.WithContext(ctx), []models.Comment{comment})
	if err != nil {
		return views.CommentView{}, internal("project comment", err)
	}
	return projected[0], nil
}

// DeleteComment removes the actor's own comment with its likes and replies.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, commentID int) (res views.DeleteResult, err error) {
	defer s.track("delete_comment", time.Now(), &err)

	err = s.tx(ctx, func(tx *gorm.DB) error {
		var comment models.Comment
		if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Comment not found")
			}
			return internal("load comment", err)
		}
		if comment.UserID != actor.ID && !actor.IsAdmin {
			return apperrors.Forbidden("You can only delete your own comments")
		}

		ids := []int{comment.ID}
		var replies []int
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Pluck("id", &replies).Error; err != nil {
			return internal("load replies", err)
		}
		ids = append(ids, replies...)

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return internal("delete comment likes", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return internal("delete comments", err)
		}
		return nil
	})
	if err != nil {
		return views.DeleteResult{}, err
	}
	return views.DeleteResult{Success: true}, nil
}
