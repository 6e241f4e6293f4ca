package db

import "time"

// PostView 记录 (观看者, 帖子) 的唯一观看关系，是已读/未读切分的数据来源。
// 唯一约束保证同一对最多一行：首次观看插入，之后的观看只做更新。
type PostView struct {
	ID             uint   `gorm:"primaryKey"`
	ViewID         string `gorm:"size:36;uniqueIndex"`
	PostID         uint   `gorm:"index:idx_view_post_viewer,unique"`
	ViewerID       uint   `gorm:"index:idx_view_post_viewer,unique"`
	FirstViewedAt  time.Time
	LastViewedAt   time.Time
	ViewDurationMs int64 `gorm:"default:0"`
	RepeatCount    int   `gorm:"default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (PostView) TableName() string {
	return "post_views"
}
