package service

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/whisperwall/internal/db"
	"gorm.io/gorm"
)

// TopicCatalog 把话题分类映射到一组小写关键词同义词。
// 这是运营内容而非算法行为，所以允许通过 settings 表整体替换。
type TopicCatalog map[string][]string

// topicCatalogSettingKey 是 settings 表里话题关键词表覆盖值的键。
const topicCatalogSettingKey = "topic_catalog"

// 话题最终得分的权重：参与度比出现次数更重要。
const (
	topicCountWeight      = 0.4
	topicEngagementWeight = 0.6
)

// hashtagPattern 匹配长度大于 2 的字面话题标签。
var hashtagPattern = regexp.MustCompile(`#(\w{3,})`)

// DefaultTopicCatalog 返回内置的分类关键词表。
func DefaultTopicCatalog() TopicCatalog {
	return TopicCatalog{
		"Love & Romance": {"love", "crush", "romance", "dating", "relationship", "heartbreak", "breakup"},
		"Campus Life":    {"class", "exam", "professor", "campus", "dorm", "roommate", "lecture", "homework"},
		"Friendship":     {"friend", "friendship", "bestie", "squad", "betrayed"},
		"Family":         {"family", "mom", "dad", "parents", "sibling", "brother", "sister"},
		"Work & Career":  {"job", "work", "career", "boss", "internship", "salary", "coworker"},
		"Mental Health":  {"anxiety", "stress", "depression", "lonely", "therapy", "overwhelmed"},
		"Confessions":    {"secret", "confession", "guilty", "regret", "ashamed"},
		"Food & Drink":   {"food", "coffee", "lunch", "dinner", "snack", "cooking"},
	}
}

// fallbackTopics 是兜底话题列表：窗口内没有任何关键词或标签命中时返回它，
// 话题接口对存在数据的窗口永远不返回错误或空结果。
var fallbackTopics = []string{
	"Confessions",
	"Campus Life",
	"Love & Romance",
	"Friendship",
	"Mental Health",
}

// topicBucket 累计单个话题的两项指标。
type topicBucket struct {
	label      string
	count      int
	engagement float64
}

// TopicService 从近期帖子里挖掘分类关键词与字面话题标签。
type TopicService struct {
	db      *gorm.DB
	catalog TopicCatalog
	now     func() time.Time
}

// NewTopicService 创建 TopicService，使用内置关键词表。
func NewTopicService(gdb *gorm.DB) *TopicService {
	return &TopicService{db: gdb, catalog: DefaultTopicCatalog(), now: time.Now}
}

// WithCatalog 替换关键词表（测试或运营定制）。
func (s *TopicService) WithCatalog(catalog TopicCatalog) *TopicService {
	if len(catalog) == 0 {
		return s
	}
	s.catalog = catalog
	return s
}

// WithClock 允许在测试中固定当前时间。
func (s *TopicService) WithClock(now func() time.Time) *TopicService {
	if now == nil {
		return s
	}
	s.now = now
	return s
}

// loadCatalog 优先读取 settings 表里的 JSON 覆盖值，缺失或无法解析时
// 回退到构造时注入的关键词表。
func (s *TopicService) loadCatalog() TopicCatalog {
	var setting db.Setting
	if err := s.db.Where("key = ?", topicCatalogSettingKey).First(&setting).Error; err != nil {
		return s.catalog
	}

	var override TopicCatalog
	if err := json.Unmarshal([]byte(setting.Value), &override); err != nil || len(override) == 0 {
		return s.catalog
	}
	return override
}

// TrendingTopics 返回窗口内按 count×0.4 + engagement×0.6 排序的话题标签，
// 截断到 limit。支持 day|week|month。
func (s *TopicService) TrendingTopics(timeframe Timeframe, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	window := timeframe.hours()
	if window <= 0 {
		return nil, ErrInvalidTimeframe
	}

	now := s.now().UTC()
	cutoff := now.Add(-time.Duration(window) * time.Hour)

	posts, err := db.ListActiveSince(s.db, cutoff, scoringCandidateLimit)
	if err != nil {
		return nil, err
	}

	catalog := s.loadCatalog()
	buckets := make(map[string]*topicBucket)

	for _, post := range posts {
		snap := snapshotPost(post, now)
		// 每个帖子的参与度权重：热门分的加权和乘以窗口内的时间衰减
		weight := baseEngagement(snap) * timeDecay(snap.AgeHours, window)
		body := strings.ToLower(post.Body)

		for category, keywords := range catalog {
			for _, keyword := range keywords {
				if strings.Contains(body, keyword) {
					accumulate(buckets, category, weight)
					break
				}
			}
		}

		// 标签按作者的原始写法计入，不做大小写归一
		for _, match := range hashtagPattern.FindAllStringSubmatch(post.Body, -1) {
			accumulate(buckets, "#"+match[1], weight)
		}
	}

	if len(buckets) == 0 {
		if limit < len(fallbackTopics) {
			return fallbackTopics[:limit], nil
		}
		return fallbackTopics, nil
	}

	ranked := make([]topicBucket, 0, len(buckets))
	for _, bucket := range buckets {
		ranked = append(ranked, *bucket)
	}

	sort.Slice(ranked, func(i, j int) bool {
		si := topicScore(ranked[i])
		sj := topicScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].label < ranked[j].label
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	labels := make([]string, 0, len(ranked))
	for _, bucket := range ranked {
		labels = append(labels, bucket.label)
	}
	return labels, nil
}

func accumulate(buckets map[string]*topicBucket, label string, weight float64) {
	bucket, ok := buckets[label]
	if !ok {
		bucket = &topicBucket{label: label}
		buckets[label] = bucket
	}
	bucket.count++
	bucket.engagement += weight
}

func topicScore(bucket topicBucket) float64 {
	return float64(bucket.count)*topicCountWeight + bucket.engagement*topicEngagementWeight
}
