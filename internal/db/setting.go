package db

import "time"

// Setting 以键值形式存放可编辑的运营配置，例如话题关键词表的覆盖值。
type Setting struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"size:64;uniqueIndex"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
