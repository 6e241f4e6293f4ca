package service

import (
	"time"

	"github.com/whisperwall/internal/db"
	"gorm.io/gorm"
)

// 一页实际采用的选取策略，作为诊断元数据返回。
const (
	StrategyIncludeAll       = "include_all"
	StrategyPreferNonViewed  = "prefer_non_viewed"
	StrategyFallbackToViewed = "fallback_to_viewed"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// FeedRequest 描述一次信息流分页请求。ViewerID 为 0 表示匿名观看者。
type FeedRequest struct {
	ViewerID      uint
	Cursor        string
	PageSize      int
	Visibility    string
	IncludeViewed bool
}

// FeedMetadata 是一页的诊断数据，对相同输入必须可复现。
type FeedMetadata struct {
	TotalFiltered   int    `json:"total_filtered"`
	NonViewedCount  int    `json:"non_viewed_count"`
	ViewedCount     int    `json:"viewed_count"`
	BlockedFiltered int    `json:"blocked_filtered"`
	StrategyUsed    string `json:"strategy_used"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// FeedPage 是选取并排序后的一页结果。
type FeedPage struct {
	Posts       []db.Post
	NextCursor  string
	IsExhausted bool
	Metadata    FeedMetadata
}

// FeedService 组合可见性过滤、观看台账与洗牌，产出最终的信息流页。
type FeedService struct {
	db     *gorm.DB
	views  *ViewService
	blocks *BlockService
	now    func() time.Time
}

// NewFeedService 创建 FeedService 实例。
func NewFeedService(gdb *gorm.DB) *FeedService {
	return &FeedService{
		db:     gdb,
		views:  NewViewService(gdb),
		blocks: NewBlockService(gdb),
		now:    time.Now,
	}
}

// WithClock 允许在测试中固定当前时间（决定洗牌的日种子）。
func (s *FeedService) WithClock(now func() time.Time) *FeedService {
	if now == nil {
		return s
	}
	s.now = now
	return s
}

// SelectPage 产出一页信息流：
//  1. 从底层分页存储取一页 active、层级匹配的帖子（按创建时间降序）；
//  2. 应用可见性过滤（拉黑、层级、状态）；
//  3. 按观看台账切分为未读/已读两组；
//  4. 执行选取策略：优先未读、不足时用已读补齐，全部已读时整体回退；
//  5. 交给确定性洗牌后返回。
//
// IsExhausted 仅当本页选取结果为空且底层存储报告没有更多数据时为 true。
func (s *FeedService) SelectPage(req FeedRequest) (*FeedPage, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	raw, nextCursor, storeDone, err := db.ListFeedPage(s.db, req.Cursor, pageSize, req.Visibility)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blocks.BlockedSet(req.ViewerID)
	if err != nil {
		return nil, err
	}

	visible, blockedCount := FilterVisible(raw, blocked, req.Visibility)

	// 匿名观看者的已读集合为空，策略退化为按时间分页
	viewed, err := s.views.ViewedPostIDs(req.ViewerID)
	if err != nil {
		return nil, err
	}

	unseen := make([]db.Post, 0, len(visible))
	seen := make([]db.Post, 0, len(visible))
	for _, post := range visible {
		if _, ok := viewed[post.ID]; ok {
			seen = append(seen, post)
		} else {
			unseen = append(unseen, post)
		}
	}

	var selected []db.Post
	strategy := StrategyPreferNonViewed
	switch {
	case req.IncludeViewed:
		selected = visible
		strategy = StrategyIncludeAll
	case len(unseen) > 0:
		selected = unseen
		// 供给耗尽（底层没有更多页）且未读不足一页时，
		// 按原始顺序用已读补齐；还有后续页时不把已读混进来
		if storeDone {
			for _, post := range seen {
				if len(selected) >= pageSize {
					break
				}
				selected = append(selected, post)
			}
		}
	case len(seen) > 0:
		selected = seen
		strategy = StrategyFallbackToViewed
	default:
		selected = nil
	}

	page := &FeedPage{
		Posts:       ShuffleForViewer(selected, req.ViewerID, s.now()),
		NextCursor:  nextCursor,
		IsExhausted: len(selected) == 0 && storeDone,
		Metadata: FeedMetadata{
			TotalFiltered:   len(visible),
			NonViewedCount:  len(unseen),
			ViewedCount:     len(seen),
			BlockedFiltered: blockedCount,
			StrategyUsed:    strategy,
			IsAuthenticated: req.ViewerID != 0,
		},
	}

	return page, nil
}
