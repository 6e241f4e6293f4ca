package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whisperwall/internal/service"
)

// GetPopular 返回窗口内热门分最高的帖子。timeframe 支持 day|week|month|all。
func (a *API) GetPopular(c *gin.Context) {
	timeframe, err := service.ParseTimeframe(
		c.DefaultQuery("timeframe", string(service.TimeframeDay)),
		service.TimeframeDay, service.TimeframeWeek, service.TimeframeMonth, service.TimeframeAll,
	)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid timeframe")
		return
	}

	viewerID := currentViewerID(c)
	limit, err := parsePositiveIntQuery(c, "limit", 10)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	scored, err := a.engagement.Popular(viewerID, timeframe, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to compute popular posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": projectScored(scored, viewerID)})
}

// GetTrending 返回窗口内趋势分达标的帖子。timeframe 只支持 day|week；
// 趋势是资格过滤而不只是排序，结果可以为空。
func (a *API) GetTrending(c *gin.Context) {
	timeframe, err := service.ParseTimeframe(
		c.DefaultQuery("timeframe", string(service.TimeframeDay)),
		service.TimeframeDay, service.TimeframeWeek,
	)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid timeframe")
		return
	}

	viewerID := currentViewerID(c)
	limit, err := parsePositiveIntQuery(c, "limit", 10)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	scored, err := a.engagement.Trending(viewerID, timeframe, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to compute trending posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": projectScored(scored, viewerID)})
}

// GetTrendingTopics 返回窗口内的话题标签列表。timeframe 支持 day|week|month。
func (a *API) GetTrendingTopics(c *gin.Context) {
	timeframe, err := service.ParseTimeframe(
		c.DefaultQuery("timeframe", string(service.TimeframeDay)),
		service.TimeframeDay, service.TimeframeWeek, service.TimeframeMonth,
	)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid timeframe")
		return
	}

	limit, err := parsePositiveIntQuery(c, "limit", 10)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	topics, err := a.topics.TrendingTopics(timeframe, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeframe) {
			respondError(c, http.StatusBadRequest, "invalid timeframe")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to extract topics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}
