package db

import "gorm.io/gorm"

// UserBlock 表示一条有向拉黑关系 (blocker -> blocked)。
// 过滤时按双向生效：任一方向存在都会把对方的内容从信息流里移除。
type UserBlock struct {
	gorm.Model
	BlockerID uint `gorm:"index:idx_blocker_blocked,unique"`
	BlockedID uint `gorm:"index:idx_blocker_blocked,unique"`
}
