package db

import "gorm.io/gorm"

// Like 记录用户对帖子的点赞。唯一约束保证同一用户不会重复点赞；
// 帖子上的 like_count 是协作方维护的冗余计数，
// 这里的行数据供趋势打分查询最近 6 小时的活跃度。
type Like struct {
	gorm.Model
	PostID uint `gorm:"index:idx_like_post_user,unique"`
	UserID uint `gorm:"index:idx_like_post_user,unique"`
}
