package service

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/whisperwall/internal/db"
	"gorm.io/gorm"
)

// Timeframe 是打分与话题挖掘的统计窗口。
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeAll   Timeframe = "all"
)

// ErrInvalidTimeframe 表示调用方传入了该操作不支持的时间窗口。
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// hours 返回窗口长度（小时）。all 窗口返回 0，表示不做时间衰减。
func (t Timeframe) hours() float64 {
	switch t {
	case TimeframeDay:
		return 24
	case TimeframeWeek:
		return 24 * 7
	case TimeframeMonth:
		return 24 * 30
	default:
		return 0
	}
}

// ParseTimeframe 校验窗口取值是否在 allowed 之内。
func ParseTimeframe(raw string, allowed ...Timeframe) (Timeframe, error) {
	tf := Timeframe(raw)
	for _, candidate := range allowed {
		if tf == candidate {
			return tf, nil
		}
	}
	return "", ErrInvalidTimeframe
}

const (
	// 打分候选集上限：按请求实时重算，不维护任何预聚合表
	scoringCandidateLimit = 500
	// 低于该趋势分的帖子被整体排除，而不只是排在后面
	trendingMinScore = 0.5
	// 最近活跃窗口与新帖加成窗口，单位小时
	recentWindowHours = 6
	recencyBoost      = 1.5
)

// EngagementSnapshot 是单个帖子的瞬时参与度切片：每次打分调用时
// 从当前计数器现算，排序完即丢弃，从不落库。
type EngagementSnapshot struct {
	PostID         uint
	Likes          int
	Comments       int
	Replies        int
	Participants   int
	BodyLen        int
	AgeHours       float64
	RecentLikes    int
	RecentComments int
	RecentReplies  int
}

// ScoredPost 是打分后的帖子。
type ScoredPost struct {
	Post  db.Post
	Score float64
}

// EngagementService 从原始计数器实时计算热门分与趋势分。
// 两个打分函数都是无状态的：不读写任何共享排序状态。
type EngagementService struct {
	db     *gorm.DB
	blocks *BlockService
	now    func() time.Time
}

// NewEngagementService 创建 EngagementService 实例。
func NewEngagementService(gdb *gorm.DB) *EngagementService {
	return &EngagementService{db: gdb, blocks: NewBlockService(gdb), now: time.Now}
}

// WithClock 允许在测试中固定当前时间。
func (s *EngagementService) WithClock(now func() time.Time) *EngagementService {
	if now == nil {
		return s
	}
	s.now = now
	return s
}

// snapshotPost 从帖子的计数器构造参与度切片。
func snapshotPost(post db.Post, now time.Time) EngagementSnapshot {
	return EngagementSnapshot{
		PostID:       post.ID,
		Likes:        post.LikeCount,
		Comments:     post.CommentCount,
		Replies:      post.ReplyCount,
		Participants: post.ParticipantCount,
		BodyLen:      len(post.Body),
		AgeHours:     now.Sub(post.CreatedAt).Hours(),
	}
}

// baseEngagement 是热门分的加权和：评论 ×3、回复 ×2、点赞 ×1、
// 独立参与者 ×2，加上内容长度项 min(len,1000)/100 与速度项
// (likes+comments+replies)/hoursOld × 5（hoursOld 下限 1，防除零）。
func baseEngagement(snap EngagementSnapshot) float64 {
	hours := math.Max(1, snap.AgeHours)
	weighted := float64(snap.Likes) +
		float64(snap.Comments)*3 +
		float64(snap.Replies)*2 +
		float64(snap.Participants)*2
	length := math.Min(float64(snap.BodyLen), 1000) / 100
	velocity := float64(snap.Likes+snap.Comments+snap.Replies) / hours * 5
	return weighted + length + velocity
}

// timeDecay 返回 [0.1, 1] 的时间衰减因子。
func timeDecay(ageHours, windowHours float64) float64 {
	return math.Max(0.1, 1-ageHours/windowHours)
}

// PopularityScore 计算热门分。all 窗口不做时间衰减；
// 不满 6 小时的新帖获得 1.5 倍加成。零参与度的帖子得 0 分而非错误。
func PopularityScore(snap EngagementSnapshot, timeframe Timeframe) float64 {
	timeFactor := 1.0
	if window := timeframe.hours(); window > 0 {
		timeFactor = timeDecay(snap.AgeHours, window)
	}

	boost := 1.0
	if snap.AgeHours < recentWindowHours {
		boost = recencyBoost
	}

	return baseEngagement(snap) * timeFactor * boost
}

// TrendingScore 计算趋势分：最近 6 小时的参与度（评论权重 ×2）相对
// 帖子年龄的速度分，加上 recent/total × 10 的加速度分。
// 没有任何总参与度时加速度为 0，速度分母通过下限 1 防除零。
func TrendingScore(snap EngagementSnapshot) float64 {
	recent := float64(snap.RecentLikes) + float64(snap.RecentComments)*2 + float64(snap.RecentReplies)
	total := float64(snap.Likes) + float64(snap.Comments)*2 + float64(snap.Replies)

	velocity := recent / math.Max(1, snap.AgeHours/recentWindowHours)

	acceleration := 0.0
	if total > 0 {
		acceleration = recent / total * 10
	}

	return velocity + acceleration
}

// Popular 返回窗口内热门分最高的帖子，降序取前 limit 条。
// 支持 day|week|month|all。
func (s *EngagementService) Popular(viewerID uint, timeframe Timeframe, limit int) ([]ScoredPost, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	now := s.now().UTC()
	candidates, err := s.visibleCandidates(viewerID, timeframe, now)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredPost, 0, len(candidates))
	for _, post := range candidates {
		snap := snapshotPost(post, now)
		scored = append(scored, ScoredPost{Post: post, Score: PopularityScore(snap, timeframe)})
	}

	sortScoredDesc(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Trending 返回窗口内趋势分达标的帖子，降序取前 limit 条。
// 只支持 day|week；趋势分不超过 0.5 的帖子被整体排除，结果可以为空。
func (s *EngagementService) Trending(viewerID uint, timeframe Timeframe, limit int) ([]ScoredPost, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	now := s.now().UTC()
	candidates, err := s.visibleCandidates(viewerID, timeframe, now)
	if err != nil {
		return nil, err
	}

	recentLikes, recentComments, recentReplies, err := s.recentActivity(now)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredPost, 0, len(candidates))
	for _, post := range candidates {
		snap := snapshotPost(post, now)
		snap.RecentLikes = recentLikes[post.ID]
		snap.RecentComments = recentComments[post.ID]
		snap.RecentReplies = recentReplies[post.ID]

		score := TrendingScore(snap)
		if score <= trendingMinScore {
			continue
		}
		scored = append(scored, ScoredPost{Post: post, Score: score})
	}

	sortScoredDesc(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// visibleCandidates 取窗口内的 active 公开帖子并应用观看者的拉黑过滤。
func (s *EngagementService) visibleCandidates(viewerID uint, timeframe Timeframe, now time.Time) ([]db.Post, error) {
	var cutoff time.Time
	if window := timeframe.hours(); window > 0 {
		cutoff = now.Add(-time.Duration(window) * time.Hour)
	}

	posts, err := db.ListActiveSince(s.db, cutoff, scoringCandidateLimit)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blocks.BlockedSet(viewerID)
	if err != nil {
		return nil, err
	}

	visible, _ := FilterVisible(posts, blocked, db.VisibilityPublic)
	return visible, nil
}

// recentActivity 按帖子聚合最近 6 小时的点赞/评论/回复行数。
func (s *EngagementService) recentActivity(now time.Time) (likes, comments, replies map[uint]int, err error) {
	since := now.Add(-recentWindowHours * time.Hour)

	likes, err = s.countSince(&db.Like{}, since)
	if err != nil {
		return nil, nil, nil, err
	}
	comments, err = s.countSince(&db.Comment{}, since)
	if err != nil {
		return nil, nil, nil, err
	}
	replies, err = s.countSince(&db.Reply{}, since)
	if err != nil {
		return nil, nil, nil, err
	}
	return likes, comments, replies, nil
}

func (s *EngagementService) countSince(model interface{}, since time.Time) (map[uint]int, error) {
	var rows []struct {
		PostID uint
		Total  int
	}
	if err := s.db.Model(model).
		Select("post_id, count(*) as total").
		Where("created_at >= ?", since).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}

// sortScoredDesc 按分数降序排序，同分时新帖在前，保证结果可复现。
func sortScoredDesc(scored []ScoredPost) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Post.ID > scored[j].Post.ID
	})
}
