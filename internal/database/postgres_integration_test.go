//go:build integration

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emilythestrangee/blogsocial/backend/internal/models"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

// StartPostgres runs a disposable postgres container and returns a migrated
// service connected to it.
func StartPostgres(t *testing.T) Service {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("blogsocial"),
		tcpostgres.WithUsername("blog"),
		tcpostgres.WithPassword("blog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	svc, err := New(Options{URL: url, LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Migrate())
	return svc
}

func TestPostgresHealth(t *testing.T) {
	svc := StartPostgres(t)

	health := svc.Health()
	assert.Equal(t, "up", health["status"])
	assert.Equal(t, "postgres", health["driver"])
}

func TestPostgresConcurrentTogglesKeepOneRow(t *testing.T) {
	svc := StartPostgres(t)
	ctx := context.Background()
	s := social.New(svc.GetDB(), social.Options{FeedLimit: 50})

	register := func(username string) social.Actor {
		p, err := s.Register(ctx, social.Registration{Email: username + "@example.com", Username: username, Password: "secret123"})
		require.NoError(t, err)
		return social.Actor{ID: p.ID, Username: p.Username}
	}
	author := register("author")
	fan := register("fan")
	post, err := s.CreatePost(ctx, author, "race me")
	require.NoError(t, err)

	const n = 9
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.ToggleLike(ctx, fan, post.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.ToggleRepost(ctx, fan, post.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var likes, reposts int64
	require.NoError(t, svc.GetDB().Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	require.NoError(t, svc.GetDB().Model(&models.Repost{}).Where("post_id = ?", post.ID).Count(&reposts).Error)
	assert.EqualValues(t, 1, likes, "an odd number of flips ends present")
	assert.EqualValues(t, 1, reposts)
}
