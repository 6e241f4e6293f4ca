package handler

import (
	"bytes"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/whisperwall/internal/db"
	"github.com/whisperwall/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// postView 是帖子的对外投影。作者字段默认脱敏：
// 只有观看者本人是作者时才带上 author_id，其余情况一律匿名。
type postView struct {
	ID           uint       `json:"id"`
	BodyHTML     string     `json:"body_html"`
	CreatedAt    time.Time  `json:"created_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	ReplyCount   int        `json:"reply_count"`
	ViewCount    int        `json:"view_count"`
	IsOwn        bool       `json:"is_own"`
	AuthorID     uint       `json:"author_id,omitempty"`
	Score        float64    `json:"score,omitempty"`
}

// renderBody 将用户生成的正文渲染为净化后的 HTML，绝不输出原始文本。
func renderBody(body string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &buf); err != nil {
		// 渲染失败时退回到整体净化的原文
		return string(sanitizer.SanitizeBytes([]byte(body)))
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes()))
}

// projectPost 在边界处做一次显式投影，而不是在各个查询里零散删字段。
func projectPost(post db.Post, viewerID uint) postView {
	view := postView{
		ID:           post.ID,
		BodyHTML:     renderBody(post.Body),
		CreatedAt:    post.CreatedAt,
		EditedAt:     post.EditedAt,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		ReplyCount:   post.ReplyCount,
		ViewCount:    post.ViewCount,
	}

	if viewerID != 0 && post.AuthorID == viewerID {
		view.IsOwn = true
		view.AuthorID = post.AuthorID
	}

	return view
}

func projectPosts(posts []db.Post, viewerID uint) []postView {
	views := make([]postView, 0, len(posts))
	for _, post := range posts {
		views = append(views, projectPost(post, viewerID))
	}
	return views
}

func projectScored(scored []service.ScoredPost, viewerID uint) []postView {
	views := make([]postView, 0, len(scored))
	for _, item := range scored {
		view := projectPost(item.Post, viewerID)
		view.Score = item.Score
		views = append(views, view)
	}
	return views
}
