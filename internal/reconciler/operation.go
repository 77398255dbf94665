package reconciler

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("reconciler: closed")

// Gesture names a user action the reconciler carries out.
type Gesture string

const (
	GestureLike          Gesture = "like"
	GestureRepost        Gesture = "repost"
	GestureCommentLike   Gesture = "comment_like"
	GestureFollow        Gesture = "follow"
	GestureVisibility    Gesture = "visibility"
	GestureDeletePost    Gesture = "delete_post"
	GestureDeleteComment Gesture = "delete_comment"
	GestureSubmitPost    Gesture = "submit_post"
	GestureSubmitComment Gesture = "submit_comment"
	GestureOpenComments  Gesture = "open_comments"
	GestureLoadFeed      Gesture = "load_feed"
	GestureLoadTab       Gesture = "load_tab"
	GestureLoadFollowing Gesture = "load_following"
)

// Event reports a failed gesture after its local effects were reverted.
type Event struct {
	Gesture Gesture
	// ID is the post, comment or user the gesture targeted.
	ID  int
	Err error
}

// Operation tracks one gesture. A skipped operation never reached the
// network and changed nothing locally.
type Operation struct {
	done    chan struct{}
	err     error
	skipped bool
}

func newOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

func skip(err error) *Operation {
	op := &Operation{done: make(chan struct{}), err: err, skipped: true}
	close(op.done)
	return op
}

func (o *Operation) complete(err error) {
	o.err = err
	close(o.done)
}

func (o *Operation) Done() <-chan struct{} { return o.done }

// Wait blocks until the gesture settles or ctx ends.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the outcome, or nil while the gesture is still in flight.
func (o *Operation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

func (o *Operation) Skipped() bool { return o.skipped }

type targetKind uint8

const (
	targetPost targetKind = iota + 1
	targetComment
	targetUser
	targetComposePost
	targetComposeComment
	targetCommentList
	targetFeed
	targetTab
	targetFollowing
)

// target identifies what an in-flight request is about. Every gesture on the
// same entity shares one target, so a like and a delete on a post exclude
// each other.
type target struct {
	kind targetKind
	id   int
}
