package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whisperwall/internal/db"
	"github.com/whisperwall/internal/service"
)

// GetFeed 返回一页信息流。
// 查询参数：cursor（不透明游标）、page_size、visibility、include_viewed。
func (a *API) GetFeed(c *gin.Context) {
	viewerID := currentViewerID(c)
	if viewerID == 0 {
		ensureVisitorID(c)
	}

	pageSize, err := parsePositiveIntQuery(c, "page_size", a.pageSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	includeViewed, err := parseBoolQuery(c, "include_viewed")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	req := service.FeedRequest{
		ViewerID:      viewerID,
		Cursor:        c.Query("cursor"),
		PageSize:      pageSize,
		Visibility:    c.Query("visibility"),
		IncludeViewed: includeViewed,
	}

	page, err := a.feed.SelectPage(req)
	if err != nil {
		if errors.Is(err, db.ErrInvalidCursor) {
			respondError(c, http.StatusBadRequest, "invalid cursor")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to build feed page")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       projectPosts(page.Posts, viewerID),
		"next_cursor": page.NextCursor,
		"is_done":     page.IsExhausted,
		"metadata":    page.Metadata,
	})
}

type markViewedRequest struct {
	DurationMs int64 `json:"duration_ms"`
}

// MarkViewed 上报一次观看。软失败（看自己的帖子、匿名观看者）返回
// 成功形态的结果加原因码，而不是错误：观看打点不能影响页面渲染。
func (a *API) MarkViewed(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req markViewedRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, "invalid view payload") {
			return
		}
	}

	outcome, err := a.views.MarkViewed(currentViewerID(c), postID, req.DurationMs, timeNow())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			respondError(c, http.StatusNotFound, "post not found")
		case errors.Is(err, service.ErrPostNotAccessible):
			respondError(c, http.StatusForbidden, "post is not viewable")
		default:
			respondError(c, http.StatusInternalServerError, "failed to record view")
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}
