// Package social implements the application's persistence operations and the
// action endpoints' semantics: toggles, posting, commenting, profile tabs and
// administration, all on top of gorm.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/models"
)

const (
	MaxPostLength    = 280
	MaxCommentLength = 500
	searchLimit      = 10
	defaultFeedLimit = 50
)

// Live event kinds published through the Notifier.
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostVisibility = "post_visibility"
)

var usernamePattern = regexp.MustCompile(`^\w{3,30}$`)

// Actor is the identity a request acts as.
type Actor struct {
	ID       int
	Username string
	IsAdmin  bool
}

// Notifier receives post lifecycle events for live clients.
type Notifier interface {
	Notify(kind string, data any)
}

// ActionRecorder counts toggle and mutation outcomes.
type ActionRecorder interface {
	RecordAction(action, outcome string, elapsed time.Duration)
}

type Options struct {
	FeedLimit int
	Logger    *slog.Logger
	Notifier  Notifier
	Recorder  ActionRecorder
}

type Service struct {
	db        *gorm.DB
	feedLimit int
	validate  *validator.Validate
	log       *slog.Logger
	notifier  Notifier
	recorder  ActionRecorder
}

func validUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func New(db *gorm.DB, opts Options) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("username", validUsername); err != nil {
		panic(err)
	}

	s := &Service{
		db:        db,
		feedLimit: opts.FeedLimit,
		validate:  v,
		log:       opts.Logger,
		notifier:  opts.Notifier,
		recorder:  opts.Recorder,
	}
	if s.feedLimit <= 0 {
		s.feedLimit = defaultFeedLimit
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Service) notify(kind string, data any) {
	if s.notifier != nil {
		s.notifier.Notify(kind, data)
	}
}

// track records the outcome of one action. It is deferred with a pointer to
// the caller's named error result.
func (s *Service) track(action string, start time.Time, errp *error) {
	if s.recorder == nil {
		return
	}
	outcome := "success"
	if errp != nil && *errp != nil {
		outcome = strings.ToLower(string(apperrors.CodeOf(*errp)))
	}
	s.recorder.RecordAction(action, outcome, time.Since(start))
}

// checkContent trims content and enforces the 1..max rune bound.
func (s *Service) checkContent(content string, max int, what string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if err := s.validate.Var(trimmed, fmt.Sprintf("required,max=%d", max)); err != nil {
		if trimmed == "" {
			return "", apperrors.Validation(what + " content is required")
		}
		return "", apperrors.Validation(fmt.Sprintf("%s must be %d characters or less", what, max))
	}
	return trimmed, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.Validation(fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperrors.Wrap(apperrors.CodeValidation, "invalid input", err)
}

// isUniqueViolation reports whether err is a uniqueness constraint failure on
// any supported driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func internal(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeInternal, op, err)
}

// forUpdate locks the selected rows until the transaction ends where the
// dialect supports row locks.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// visiblePost loads a post the actor may see. Hidden posts are visible only
// to their author.
func visiblePost(tx *gorm.DB, actor Actor, postID int, lock bool) (*models.Post, error) {
	q := tx
	if lock {
		q = forUpdate(tx)
	}
	var post models.Post
	if err := q.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Post not found")
		}
		return nil, internal("load post", err)
	}
	if post.IsHidden && post.AuthorID != actor.ID {
		return nil, apperrors.NotFound("Post not found")
	}
	return &post, nil
}

func (s *Service) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
