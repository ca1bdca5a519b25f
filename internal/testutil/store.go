// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite returns a private in-memory database for t. A single pooled
// connection keeps every transaction on the same database handle.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewStore returns a migrated store over a fresh sqlite database.
func NewStore(t testing.TB) *repositories.PostgresStore {
	t.Helper()
	store := repositories.NewPostgresStore(OpenSQLite(t))
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func SeedUser(t testing.TB, store repositories.Store, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Email:    username + "@example.com",
		Image:    "https://cdn.example.com/" + username + ".png",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func SeedPost(t testing.TB, store repositories.Store, author *models.User, content string) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: author.ID, Content: content}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}
