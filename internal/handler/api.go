package handler

import (
	"github.com/whisperwall/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	feed       *service.FeedService
	views      *service.ViewService
	engagement *service.EngagementService
	topics     *service.TopicService
	pageSize   int
}

// NewAPI constructs a handler set with shared services. pageSize is the
// fallback feed page size when the request does not specify one.
func NewAPI(gdb *gorm.DB, pageSize int) *API {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &API{
		db:         gdb,
		feed:       service.NewFeedService(gdb),
		views:      service.NewViewService(gdb),
		engagement: service.NewEngagementService(gdb),
		topics:     service.NewTopicService(gdb),
		pageSize:   pageSize,
	}
}

// DB exposes the underlying gorm instance for test setup paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
