package service

import (
	"github.com/whisperwall/internal/db"
	"gorm.io/gorm"
)

// BlockService 查询拉黑关系。
type BlockService struct {
	db *gorm.DB
}

// NewBlockService 创建 BlockService 实例。
func NewBlockService(gdb *gorm.DB) *BlockService {
	return &BlockService{db: gdb}
}

// BlockedSet 返回观看者的双向拉黑集合：我拉黑的用户 ∪ 拉黑我的用户。
// 匿名观看者返回空集合。
func (s *BlockService) BlockedSet(viewerID uint) (map[uint]struct{}, error) {
	blocked := make(map[uint]struct{})
	if viewerID == 0 {
		return blocked, nil
	}

	var outgoing []uint
	if err := s.db.Model(&db.UserBlock{}).
		Where("blocker_id = ?", viewerID).
		Pluck("blocked_id", &outgoing).Error; err != nil {
		return nil, err
	}

	var incoming []uint
	if err := s.db.Model(&db.UserBlock{}).
		Where("blocked_id = ?", viewerID).
		Pluck("blocker_id", &incoming).Error; err != nil {
		return nil, err
	}

	for _, id := range outgoing {
		blocked[id] = struct{}{}
	}
	for _, id := range incoming {
		blocked[id] = struct{}{}
	}

	return blocked, nil
}
