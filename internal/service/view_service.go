package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/whisperwall/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrPostNotFound 表示目标帖子不存在。
	ErrPostNotFound = errors.New("post not found")
	// ErrPostNotAccessible 表示帖子存在但状态不允许被观看。
	ErrPostNotAccessible = errors.New("post is not viewable")
)

// MarkViewed 的结果类型。
const (
	ViewOutcomeCreated = "created"
	ViewOutcomeUpdated = "updated"
	ViewOutcomeSkipped = "skipped"
)

// 软失败原因：请求合法但有意不做任何事。
const (
	SkipReasonNotAuthenticated = "not_authenticated"
	SkipReasonOwnPost          = "own_post"
)

// ViewOutcome 描述一次观看上报的处理结果。软失败 (skipped) 也算 Success，
// 观看打点永远不应该让页面渲染失败。
type ViewOutcome struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
	ViewID  string `json:"view_id,omitempty"`
}

// ViewService 维护 (观看者, 帖子) 的观看台账。
type ViewService struct {
	db *gorm.DB
}

// NewViewService 创建 ViewService 实例。
func NewViewService(gdb *gorm.DB) *ViewService {
	return &ViewService{db: gdb}
}

// MarkViewed 记录一次观看。首次观看插入观看记录并把帖子的 view_count +1；
// 重复观看只更新已有记录（累计时长、递增重复计数），计数器不会再次 +1。
// 并发下靠 (post_id, viewer_id) 唯一约束收敛：OnConflict 插入失败的一方
// 自动落到更新路径，而不是报错。
func (s *ViewService) MarkViewed(viewerID, postID uint, durationMs int64, now time.Time) (ViewOutcome, error) {
	if viewerID == 0 {
		return ViewOutcome{Success: true, Type: ViewOutcomeSkipped, Reason: SkipReasonNotAuthenticated}, nil
	}
	if durationMs < 0 {
		durationMs = 0
	}

	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ViewOutcome{}, ErrPostNotFound
		}
		return ViewOutcome{}, err
	}

	if post.Status != db.StatusActive {
		return ViewOutcome{}, ErrPostNotAccessible
	}

	// 看自己的帖子不算观看
	if post.AuthorID == viewerID {
		return ViewOutcome{Success: true, Type: ViewOutcomeSkipped, Reason: SkipReasonOwnPost}, nil
	}

	view := db.PostView{
		ViewID:         uuid.NewString(),
		PostID:         postID,
		ViewerID:       viewerID,
		FirstViewedAt:  now,
		LastViewedAt:   now,
		ViewDurationMs: durationMs,
		RepeatCount:    1,
	}

	created := false
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "viewer_id"}},
			DoNothing: true,
		}).Create(&view)
		if insert.Error != nil {
			return insert.Error
		}

		created = insert.RowsAffected == 1
		if created {
			// 首次唯一观看：帖子计数恰好 +1
			return tx.Model(&db.Post{}).
				Where("id = ?", postID).
				UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("post_id = ? AND viewer_id = ?", postID, viewerID).
			First(&view).Error; err != nil {
			return err
		}

		view.LastViewedAt = now
		view.ViewDurationMs += durationMs
		view.RepeatCount++
		return tx.Save(&view).Error
	}); err != nil {
		return ViewOutcome{}, err
	}

	outcome := ViewOutcome{Success: true, Type: ViewOutcomeUpdated, ViewID: view.ViewID}
	if created {
		outcome.Type = ViewOutcomeCreated
	}
	return outcome, nil
}

// ViewedPostIDs 返回观看者已看过的帖子 ID 集合，供已读/未读切分使用。
func (s *ViewService) ViewedPostIDs(viewerID uint) (map[uint]struct{}, error) {
	viewed := make(map[uint]struct{})
	if viewerID == 0 {
		return viewed, nil
	}

	var ids []uint
	if err := s.db.Model(&db.PostView{}).
		Where("viewer_id = ?", viewerID).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}

	for _, id := range ids {
		viewed[id] = struct{}{}
	}
	return viewed, nil
}
