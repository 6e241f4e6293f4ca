package db

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// 帖子状态。只有 active 的帖子会进入任何排序或统计。
const (
	StatusActive        = "active"
	StatusHidden        = "hidden"
	StatusRemoved       = "removed"
	StatusPendingReview = "pending_review"
)

// 帖子可见层级。
const (
	VisibilityPublic      = "public"
	VisibilityPrivate     = "private"
	VisibilityFriendsOnly = "friends_only"
)

// ErrInvalidCursor 表示调用方传入了无法解析的分页游标。
var ErrInvalidCursor = errors.New("invalid feed cursor")

// Post 定义了帖子模型。计数字段由点赞/评论/举报等协作方维护，
// 排序核心只读取它们；唯一的例外是首次观看时 view_count +1。
type Post struct {
	gorm.Model
	AuthorID         uint `gorm:"index"`
	Author           User
	Body             string `gorm:"type:text"`
	Status           string `gorm:"size:20;default:active;index"`
	Visibility       string `gorm:"size:20;default:public;index"`
	EditedAt         *time.Time
	LikeCount        int `gorm:"default:0"`
	CommentCount     int `gorm:"default:0"`
	ReplyCount       int `gorm:"default:0"`
	ViewCount        int `gorm:"default:0"`
	ReportCount      int `gorm:"default:0"`
	ParticipantCount int `gorm:"default:0"`
}

// feedCursor 是按 (created_at, id) 双键降序分页的游标位置。
// 对调用方而言游标是不透明的 base64 token，只有本层负责编解码。
type feedCursor struct {
	createdAtNanos int64
	id             uint
}

func encodeFeedCursor(p Post) string {
	raw := fmt.Sprintf("%d:%d", p.CreatedAt.UTC().UnixNano(), p.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeFeedCursor(token string) (feedCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return feedCursor{}, ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return feedCursor{}, ErrInvalidCursor
	}

	var cursor feedCursor
	if _, err := fmt.Sscanf(parts[0], "%d", &cursor.createdAtNanos); err != nil {
		return feedCursor{}, ErrInvalidCursor
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &cursor.id); err != nil {
		return feedCursor{}, ErrInvalidCursor
	}

	return cursor, nil
}

// ListFeedPage 按创建时间降序返回一页 active 帖子。
// cursor 为空表示从最新一条开始；返回的 nextCursor 指向本页最后一条，
// done 为 true 表示游标之后没有更多数据。
func ListFeedPage(gdb *gorm.DB, cursor string, limit int, visibility string) ([]Post, string, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(visibility) == "" {
		visibility = VisibilityPublic
	}

	query := gdb.Model(&Post{}).
		Where("status = ?", StatusActive).
		Where("visibility = ?", visibility).
		Order("created_at desc, id desc")

	if strings.TrimSpace(cursor) != "" {
		pos, err := decodeFeedCursor(cursor)
		if err != nil {
			return nil, "", false, err
		}
		at := time.Unix(0, pos.createdAtNanos).UTC()
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", at, at, pos.id)
	}

	// 多取一条用于探测是否还有下一页
	var posts []Post
	if err := query.Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, "", false, err
	}

	done := len(posts) <= limit
	if !done {
		posts = posts[:limit]
	}

	nextCursor := ""
	if len(posts) > 0 {
		nextCursor = encodeFeedCursor(posts[len(posts)-1])
	}

	return posts, nextCursor, done, nil
}

// ListActiveSince 返回窗口内创建的 active 公开帖子，按创建时间降序，
// 供打分和话题挖掘使用。cutoff 为零值时不限制时间窗口。
func ListActiveSince(gdb *gorm.DB, cutoff time.Time, limit int) ([]Post, error) {
	query := gdb.Model(&Post{}).
		Where("status = ?", StatusActive).
		Where("visibility = ?", VisibilityPublic).
		Order("created_at desc, id desc")

	if !cutoff.IsZero() {
		query = query.Where("created_at >= ?", cutoff)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
