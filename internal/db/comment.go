package db

import "gorm.io/gorm"

// Comment 定义了帖子下的评论模型。计数由协作方维护。
type Comment struct {
	gorm.Model
	PostID     uint   `gorm:"index"`
	AuthorID   uint   `gorm:"index"`
	Body       string `gorm:"type:text"`
	Status     string `gorm:"size:20;default:active"`
	LikeCount  int    `gorm:"default:0"`
	ReplyCount int    `gorm:"default:0"`
}

// Reply 定义了评论下的回复模型。冗余 PostID 便于按帖子聚合。
type Reply struct {
	gorm.Model
	CommentID uint   `gorm:"index"`
	PostID    uint   `gorm:"index"`
	AuthorID  uint   `gorm:"index"`
	Body      string `gorm:"type:text"`
	Status    string `gorm:"size:20;default:active"`
}
