package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// Registration is the input of a sign-up.
type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,username"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates an active, non-admin account.
func (s *Service) Register(ctx context.Context, in Registration) (views.Profile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return views.Profile{}, validationError(err)
	}

	user, err := s.createUser(ctx, in, false)
	if err != nil {
		return views.Profile{}, err
	}
	return profileOf(*user, views.ProfileCounts{}, true), nil
}

func (s *Service) createUser(ctx context.Context, in Registration, admin bool) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := models.User{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: string(hash),
		IsAdmin:  admin,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Rejected("User with this email or username already exists")
		}
		return nil, internal("create user", err)
	}
	return &user, nil
}

// Authenticate checks credentials and returns the matching active user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is deactivated")
	}
	return &user, nil
}

// ResolveActor re-reads the session's user so deactivated accounts lose
// access immediately.
func (s *Service) ResolveActor(ctx context.Context, userID int) (Actor, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Actor{}, apperrors.Unauthorized("Unauthorized")
		}
		return Actor{}, internal("load user", err)
	}
	if !user.IsActive {
		return Actor{}, apperrors.Unauthorized("Account is deactivated")
	}
	return Actor{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

func profileOf(u models.User, counts views.ProfileCounts, private bool) views.Profile {
	p := views.Profile{
		UserSummary: summarize(u),
		Bio:         u.Bio,
		CreatedAt:   u.CreatedAt,
		Counts:      counts,
	}
	if private {
		p.Email = u.Email
	}
	return p
}

func (s *Service) profileCounts(db *gorm.DB, actor Actor, userID int) (views.ProfileCounts, error) {
	var posts, followers, following int64
	if err := visibleTo(db.Model(&models.Post{}).Where("author_id = ?", userID), actor).Count(&posts).Error; err != nil {
		return views.ProfileCounts{}, err
	}
	if err := db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followers).Error; err != nil {
		return views.ProfileCounts{}, err
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return views.ProfileCounts{}, err
	}
	return views.ProfileCounts{Posts: int(posts), Followers: int(followers), Following: int(following)}, nil
}

// Profile returns the full profile of a user. Only the user and admins may
// read it.
func (s *Service) Profile(ctx context.Context, actor Actor, userID int) (views.Profile, error) {
	if actor.ID != userID && !actor.IsAdmin {
		return views.Profile{}, apperrors.Forbidden("Forbidden")
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return views.Profile{}, apperrors.NotFound("User not found")
		}
		return views.Profile{}, internal("load user", err)
	}
	counts, err := s.profileCounts(db, actor, userID)
	if err != nil {
		return views.Profile{}, internal("count profile", err)
	}
	return profileOf(user, counts, true), nil
}

// PublicProfile returns an active user's public profile as seen by actor.
func (s *Service) PublicProfile(ctx context.Context, actor Actor, username string) (views.Profile, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where("username = ? AND is_active = ?", username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return views.Profile{}, apperrors.NotFound("User not found")
		}
		return views.Profile{}, internal("load user", err)
	}
	counts, err := s.profileCounts(db, actor, user.ID)
	if err != nil {
		return views.Profile{}, internal("count profile", err)
	}

	p := profileOf(user, counts, false)
	if actor.ID != 0 && actor.ID != user.ID {
		var n int64
		if err := db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", actor.ID, user.ID).Count(&n).Error; err != nil {
			return views.Profile{}, internal("load follow", err)
		}
		p.IsFollowing = n > 0
	}
	return p, nil
}

// FollowingIDs lists the ids of users the actor follows.
func (s *Service) FollowingIDs(ctx context.Context, actor Actor) (views.FollowingIDs, error) {
	ids := []int{}
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", actor.ID).
		Order("id").
		Pluck("following_id", &ids).Error
	if err != nil {
		return views.FollowingIDs{}, internal("load following", err)
	}
	return views.FollowingIDs{FollowingIDs: ids}, nil
}

// SearchUsers finds active users whose username or name contains q.
func (s *Service) SearchUsers(ctx context.Context, q string) ([]views.UserSummary, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []views.UserSummary{}
	if q == "" {
		return out, nil
	}

	pattern := "%" + escapeLike(q) + "%"
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("username ASC").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, internal("search users", err)
	}
	for _, u := range users {
		out = append(out, summarize(u))
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Stats computes the admin dashboard totals.
func (s *Service) Stats(ctx context.Context, actor Actor) (views.Stats, error) {
	if !actor.IsAdmin {
		return views.Stats{}, apperrors.Forbidden("Admin access required")
	}

	var stats views.Stats
	today := time.Now().UTC().Truncate(24 * time.Hour)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Post{}).Count(&stats.TotalPosts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Post{}).Where("created_at >= ?", today).Count(&stats.PostsToday).Error
	})
	if err := g.Wait(); err != nil {
		return views.Stats{}, internal("compute stats", err)
	}
	return stats, nil
}

// SetActive activates or deactivates an account. Admins cannot deactivate
// themselves.
func (s *Service) SetActive(ctx context.Context, actor Actor, userID int, active bool) (views.UserStatus, error) {
	if !actor.IsAdmin {
		return views.UserStatus{}, apperrors.Forbidden("Admin access required")
	}
	if actor.ID == userID && !active {
		return views.UserStatus{}, apperrors.Rejected("You cannot deactivate your own account")
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return views.UserStatus{}, internal("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return views.UserStatus{}, apperrors.NotFound("User not found")
	}
	return views.UserStatus{ID: userID, IsActive: active}, nil
}

// EnsureAdmin creates an admin account unless one already exists. It reports
// whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, in Registration) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error; err != nil {
		return false, internal("count admins", err)
	}
	if n > 0 {
		return false, nil
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return false, validationError(err)
	}
	if _, err := s.createUser(ctx, in, true); err != nil {
		return false, err
	}
	s.log.Info("admin account created", "username", in.Username)
	return true, nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are kept.
type ProfileUpdate struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Bio    *string `json:"bio" validate:"omitempty,max=160"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

// UpdateProfile edits the actor's own profile.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, in ProfileUpdate) (views.Profile, error) {
	if actor.ID == 0 {
		return views.Profile{}, apperrors.Unauthorized("Unauthorized")
	}
	if err := s.validate.Struct(in); err != nil {
		return views.Profile{}, validationError(err)
	}

	changes := map[string]any{}
	if in.Name != nil {
		changes["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		changes["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil {
		changes["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.ID).Updates(changes).Error; err != nil {
			return views.Profile{}, internal("update profile", err)
		}
	}
	return s.Profile(ctx, actor, actor.ID)
}

// Followers lists the active users following userID, oldest follow first.
func (s *Service) Followers(ctx context.Context, userID int) ([]views.UserSummary, error) {
	return s.followList(ctx, "follower_id", "following_id", userID)
}

// Following lists the active users userID follows, oldest follow first.
func (s *Service) Following(ctx context.Context, userID int) ([]views.UserSummary, error) {
	return s.followList(ctx, "following_id", "follower_id", userID)
}

func (s *Service) followList(ctx context.Context, pick, match string, userID int) ([]views.UserSummary, error) {
	db := s.db.WithContext(ctx)
	var ids []int
	if err := db.Model(&models.Follow{}).Where(match+" = ?", userID).Order("id").Pluck(pick, &ids).Error; err != nil {
		return nil, internal("load follows", err)
	}
	out := []views.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := db.Where("id IN ? AND is_active = ?", ids, true).Find(&users).Error; err != nil {
		return nil, internal("load users", err)
	}
	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, summarize(u))
		}
	}
	return out, nil
}
