package service

import (
	"testing"
	"time"

	"github.com/whisperwall/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.Post{},
		&db.Comment{},
		&db.Reply{},
		&db.Like{},
		&db.PostView{},
		&db.UserBlock{},
		&db.Setting{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func mustCreatePost(t *testing.T, gdb *gorm.DB, authorID uint, body string, createdAt time.Time) db.Post {
	t.Helper()

	post := db.Post{
		AuthorID:   authorID,
		Body:       body,
		Status:     db.StatusActive,
		Visibility: db.VisibilityPublic,
	}
	post.CreatedAt = createdAt
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return post
}
