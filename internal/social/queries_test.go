package social

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blogsocial/backend/internal/apperrors"
	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

func TestFeed(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	carol := f.user(t, "carol", false)
	root := f.user(t, "root", true)

	own := f.post(t, alice, "mine")
	followed := f.post(t, bob, "from bob")
	stranger := f.post(t, carol, "from carol")
	announcement := f.post(t, root, "from admin")
	hidden := f.post(t, bob, "bob hides this")
	f.hide(t, bob, hidden.ID)

	_, err := f.svc.ToggleFollow(f.ctx, alice, bob.ID)
	require.NoError(t, err)

	feed, err := f.svc.Feed(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []int{announcement.ID, followed.ID, own.ID}, ids(feed))
	assert.NotContains(t, ids(feed), stranger.ID)

	anon, err := f.svc.Feed(f.ctx, Actor{})
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestFeedLimit(t *testing.T) {
	f := newFixture(t)
	f.svc.feedLimit = 2
	alice := f.user(t, "alice", false)
	for i := 0; i < 3; i++ {
		f.post(t, alice, "post")
	}

	feed, err := f.svc.Feed(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, feed, 2)
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)

	p, err := f.svc.CreatePost(f.ctx, alice, "  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", p.Content)
	assert.Equal(t, alice.ID, p.Author.ID)
	assert.Equal(t, views.PostCounts{}, p.Counts)
	assert.NotNil(t, p.Likes)
	assert.Contains(t, f.notifier.kinds, EventPostCreated)

	_, err = f.svc.CreatePost(f.ctx, alice, strings.Repeat("x", MaxPostLength+1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreatePost(f.ctx, Actor{}, "hello")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestCommentPreviewAndCounts(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	p := f.post(t, alice, "hello")

	var first views.CommentView
	for i, text := range []string{"one", "two", "three"} {
		c, err := f.svc.CreateComment(f.ctx, bob, p.ID, text, nil)
		require.NoError(t, err)
		if i == 0 {
			first = c
		}
	}
	reply, err := f.svc.CreateComment(f.ctx, alice, p.ID, "reply", &first.ID)
	require.NoError(t, err)
	assert.Equal(t, &first.ID, reply.ParentID)

	feed, err := f.svc.Feed(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, 3, feed[0].Counts.Comments, "replies are not top-level comments")
	require.Len(t, feed[0].Comments, 1)
	assert.Equal(t, first.ID, feed[0].Comments[0].ID)
	assert.Equal(t, 1, feed[0].Comments[0].Counts.Replies)

	comments, err := f.svc.Comments(f.ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "one", comments[0].Content)
	assert.Equal(t, "three", comments[2].Content)
}

func TestCreateCommentRules(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	p := f.post(t, alice, "hello")
	other := f.post(t, alice, "other")
	c, err := f.svc.CreateComment(f.ctx, bob, other.ID, "elsewhere", nil)
	require.NoError(t, err)

	_, err = f.svc.CreateComment(f.ctx, bob, p.ID, "", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreateComment(f.ctx, bob, p.ID, strings.Repeat("x", MaxCommentLength+1), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreateComment(f.ctx, bob, p.ID, "reply", &c.ID)
	assert.ErrorIs(t, err, apperrors.ErrRejected)

	_, err = f.svc.CreateComment(f.ctx, bob, 999, "hi", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	f.hide(t, alice, p.ID)
	_, err = f.svc.CreateComment(f.ctx, bob, p.ID, "hi", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.Comments(f.ctx, bob, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	p := f.post(t, alice, "hello")
	c, err := f.svc.CreateComment(f.ctx, bob, p.ID, "top", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateComment(f.ctx, alice, p.ID, "reply", &c.ID)
	require.NoError(t, err)

	_, err = f.svc.DeleteComment(f.ctx, alice, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	res, err := f.svc.DeleteComment(f.ctx, bob, c.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	feed, err := f.svc.Feed(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Zero(t, feed[0].Counts.Comments)
	assert.Empty(t, feed[0].Comments)

	_, err = f.svc.DeleteComment(f.ctx, bob, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTabs(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)

	visible := f.post(t, alice, "visible")
	secret := f.post(t, alice, "secret")
	bobs := f.post(t, bob, "bob's")
	older := f.post(t, bob, "older")

	for _, id := range []int{older.ID, bobs.ID, secret.ID} {
		_, err := f.svc.ToggleLike(f.ctx, alice, id)
		require.NoError(t, err)
	}
	_, err := f.svc.ToggleRepost(f.ctx, alice, bobs.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateComment(f.ctx, alice, older.ID, "first", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateComment(f.ctx, alice, bobs.ID, "second", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateComment(f.ctx, alice, older.ID, "third", nil)
	require.NoError(t, err)
	f.hide(t, alice, secret.ID)

	posts, err := f.svc.Tab(f.ctx, bob, alice.ID, views.TabPosts)
	require.NoError(t, err)
	assert.Equal(t, []int{visible.ID}, ids(posts))

	liked, err := f.svc.Tab(f.ctx, alice, alice.ID, views.TabLikes)
	require.NoError(t, err)
	assert.Equal(t, []int{secret.ID, bobs.ID, older.ID}, ids(liked))
	for _, p := range liked {
		assert.NotNil(t, p.LikedAt)
	}

	likedByOthers, err := f.svc.Tab(f.ctx, bob, alice.ID, views.TabLikes)
	require.NoError(t, err)
	assert.Equal(t, []int{bobs.ID, older.ID}, ids(likedByOthers), "hidden posts stay hidden from others")

	reposts, err := f.svc.Tab(f.ctx, bob, alice.ID, views.TabReposts)
	require.NoError(t, err)
	require.Len(t, reposts, 1)
	assert.Equal(t, bobs.ID, reposts[0].ID)
	assert.NotNil(t, reposts[0].RepostedAt)

	commented, err := f.svc.Tab(f.ctx, bob, alice.ID, views.TabComments)
	require.NoError(t, err)
	assert.Equal(t, []int{older.ID, bobs.ID}, ids(commented), "one entry per post, latest comment first")
	assert.NotNil(t, commented[0].LastCommentedAt)

	hidden, err := f.svc.Tab(f.ctx, alice, alice.ID, views.TabHidden)
	require.NoError(t, err)
	assert.Equal(t, []int{secret.ID}, ids(hidden))

	_, err = f.svc.Tab(f.ctx, bob, alice.ID, views.TabHidden)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Tab(f.ctx, bob, 999, views.TabPosts)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Register(f.ctx, Registration{
		Email:    " Dana@Example.com ",
		Username: "dana",
		Name:     "Dana",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", p.Email)
	assert.False(t, p.IsAdmin)

	_, err = f.svc.Register(f.ctx, Registration{Email: "dana@example.com", Username: "dana2", Password: "hunter22"})
	assert.ErrorIs(t, err, apperrors.ErrRejected)

	for _, bad := range []Registration{
		{Email: "nope", Username: "erin", Password: "hunter22"},
		{Email: "erin@example.com", Username: "e!", Password: "hunter22"},
		{Email: "erin@example.com", Username: "erin", Password: "123"},
	} {
		_, err := f.svc.Register(f.ctx, bad)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "%+v", bad)
	}

	u, err := f.svc.Authenticate(f.ctx, "DANA@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "dana", u.Username)

	_, err = f.svc.Authenticate(f.ctx, "dana@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	actor, err := f.svc.ResolveActor(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana", actor.Username)

	_, err = f.svc.ResolveActor(f.ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDeactivatedUsersLoseAccess(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	root := f.user(t, "root", true)

	_, err := f.svc.SetActive(f.ctx, alice, root.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.SetActive(f.ctx, root, root.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrRejected)

	status, err := f.svc.SetActive(f.ctx, root, alice.ID, false)
	require.NoError(t, err)
	assert.False(t, status.IsActive)

	_, err = f.svc.Authenticate(f.ctx, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.ResolveActor(f.ctx, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = f.svc.PublicProfile(f.ctx, root, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.SetActive(f.ctx, root, 999, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	root := f.user(t, "root", true)
	f.post(t, alice, "one")
	hidden := f.post(t, alice, "two")
	f.hide(t, alice, hidden.ID)

	_, err := f.svc.ToggleFollow(f.ctx, bob, alice.ID)
	require.NoError(t, err)

	own, err := f.svc.Profile(f.ctx, alice, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, views.ProfileCounts{Posts: 2, Followers: 1}, own.Counts)
	assert.Equal(t, "alice@example.com", own.Email)

	_, err = f.svc.Profile(f.ctx, bob, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Profile(f.ctx, root, alice.ID)
	assert.NoError(t, err)

	public, err := f.svc.PublicProfile(f.ctx, bob, "alice")
	require.NoError(t, err)
	assert.True(t, public.IsFollowing)
	assert.Empty(t, public.Email)
	assert.Equal(t, 1, public.Counts.Posts)

	_, err = f.svc.PublicProfile(f.ctx, bob, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	f.user(t, "zed", false)
	f.user(t, "anna", false)
	f.user(t, "hannah", false)
	f.user(t, "bob", false)

	users, err := f.svc.SearchUsers(f.ctx, "AN")
	require.NoError(t, err)
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	assert.Equal(t, []string{"anna", "hannah"}, names)

	users, err = f.svc.SearchUsers(f.ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = f.svc.SearchUsers(f.ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, users, "wildcards are matched literally")
}

func TestStatsAndEnsureAdmin(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.EnsureAdmin(f.ctx, Registration{Email: "admin@example.com", Username: "admin", Password: "changeme"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(f.ctx, Registration{Email: "admin2@example.com", Username: "admin2", Password: "changeme"})
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.svc.Authenticate(f.ctx, "admin@example.com", "changeme")
	require.NoError(t, err)
	root := Actor{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
	require.True(t, root.IsAdmin)

	alice := f.user(t, "alice", false)
	f.post(t, alice, "today")
	f.post(t, root, "also today")
	_, err = f.svc.SetActive(f.ctx, root, alice.ID, false)
	require.NoError(t, err)

	stats, err := f.svc.Stats(f.ctx, root)
	require.NoError(t, err)
	assert.Equal(t, views.Stats{TotalUsers: 2, TotalPosts: 2, ActiveUsers: 1, PostsToday: 2}, stats)

	_, err = f.svc.Stats(f.ctx, alice)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)

	bio := "  writes short posts  "
	p, err := f.svc.UpdateProfile(f.ctx, alice, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "writes short posts", p.Bio)
	assert.Equal(t, "Alice", p.Name, "unset fields are kept")

	bad := "not a url"
	_, err = f.svc.UpdateProfile(f.ctx, alice, ProfileUpdate{Avatar: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFollowLists(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	carol := f.user(t, "carol", false)

	for _, follower := range []Actor{bob, carol} {
		_, err := f.svc.ToggleFollow(f.ctx, follower, alice.ID)
		require.NoError(t, err)
	}

	followers, err := f.svc.Followers(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "bob", followers[0].Username)
	assert.Equal(t, "carol", followers[1].Username)

	following, err := f.svc.Following(f.ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, alice.ID, following[0].ID)
}
