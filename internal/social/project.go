package social

import (
	"gorm.io/gorm"

	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

type countRow struct {
	RefID int
	Total int
}

// countBy returns COUNT(*) of model rows grouped by col for the given ids.
func countBy(tx *gorm.DB, model any, col string, ids []int, where ...any) (map[int]int, error) {
	out := make(map[int]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := tx.Model(model).
		Select(col+" AS ref_id, COUNT(*) AS total").
		Where(col+" IN ?", ids)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var rows []countRow
	if err := q.Group(col).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RefID] = r.Total
	}
	return out, nil
}

func summarize(u models.User) views.UserSummary {
	return views.UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
		IsAdmin:  u.IsAdmin,
	}
}

// projectComments builds views for comments whose User is preloaded.
func projectComments(tx *gorm.DB, comments []models.Comment) ([]views.CommentView, error) {
	out := make([]views.CommentView, 0, len(comments))
	if len(comments) == 0 {
		return out, nil
	}

	ids := make([]int, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	var likes []models.CommentLike
	if err := tx.Where("comment_id IN ?", ids).Order("id").Find(&likes).Error; err != nil {
		return nil, err
	}
	likesBy := make(map[int][]views.Membership)
	for _, l := range likes {
		likesBy[l.CommentID] = append(likesBy[l.CommentID], views.Membership{ID: l.ID, UserID: l.UserID})
	}

	replies, err := countBy(tx, &models.Comment{}, "parent_id", ids)
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		memberships := likesBy[c.ID]
		if memberships == nil {
			memberships = []views.Membership{}
		}
		out = append(out, views.CommentView{
			ID:        c.ID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			PostID:    c.PostID,
			ParentID:  c.ParentID,
			User:      summarize(c.User),
			Likes:     memberships,
			Counts: views.CommentCounts{
				Likes:   len(memberships),
				Replies: replies[c.ID],
			},
		})
	}
	return out, nil
}

// projectPosts builds views for posts whose Author is preloaded. Each view
// carries the full like and repost memberships and at most one top-level
// comment as a preview.
func projectPosts(tx *gorm.DB, posts []models.Post) ([]views.PostView, error) {
	out := make([]views.PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	ids := make([]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var likes []models.Like
	if err := tx.Where("post_id IN ?", ids).Order("id").Find(&likes).Error; err != nil {
		return nil, err
	}
	likesBy := make(map[int][]views.Membership)
	for _, l := range likes {
		likesBy[l.PostID] = append(likesBy[l.PostID], views.Membership{ID: l.ID, UserID: l.UserID})
	}

	var reposts []models.Repost
	if err := tx.Where("post_id IN ?", ids).Order("id").Find(&reposts).Error; err != nil {
		return nil, err
	}
	repostsBy := make(map[int][]views.Membership)
	for _, r := range reposts {
		repostsBy[r.PostID] = append(repostsBy[r.PostID], views.Membership{ID: r.ID, UserID: r.UserID})
	}

	comments, err := countBy(tx, &models.Comment{}, "post_id", ids, "parent_id IS NULL")
	if err != nil {
		return nil, err
	}

	previews, err := commentPreviews(tx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		l := likesBy[p.ID]
		if l == nil {
			l = []views.Membership{}
		}
		r := repostsBy[p.ID]
		if r == nil {
			r = []views.Membership{}
		}
		preview := []views.CommentView{}
		if c, ok := previews[p.ID]; ok {
			preview = append(preview, c)
		}
		out = append(out, views.PostView{
			ID:        p.ID,
			Content:   p.Content,
			CreatedAt: p.CreatedAt,
			IsHidden:  p.IsHidden,
			Author:    summarize(p.Author),
			Likes:     l,
			Reposts:   r,
			Comments:  preview,
			Counts: views.PostCounts{
				Likes:    len(l),
				Comments: comments[p.ID],
				Reposts:  len(r),
			},
		})
	}
	return out, nil
}

// commentPreviews returns the oldest top-level comment of each post.
func commentPreviews(tx *gorm.DB, postIDs []int) (map[int]views.CommentView, error) {
	var firstIDs []int
	err := tx.Model(&models.Comment{}).
		Select("MIN(id)").
		Where("post_id IN ? AND parent_id IS NULL", postIDs).
		Group("post_id").
		Pluck("MIN(id)", &firstIDs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]views.CommentView, len(firstIDs))
	if len(firstIDs) == 0 {
		return out, nil
	}

	var comments []models.Comment
	if err := tx.Preload("User").Where("id IN ?", firstIDs).Find(&comments).Error; err != nil {
		return nil, err
	}
	projected, err := projectComments(tx, comments)
	if err != nil {
		return nil, err
	}
	for _, c := range projected {
		out[c.PostID] = c
	}
	return out, nil
}
