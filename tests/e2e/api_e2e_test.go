package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whisperwall/internal/config"
	"github.com/whisperwall/internal/db"
	"github.com/whisperwall/internal/router"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	handler http.Handler
	viewer  *localClient
	guest   *localClient
	viewerU db.User
	author  db.User
	blocked db.User
	posts   []db.Post
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, req)
	resp := recorder.Result()
	resp.Request = req

	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func setupSuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{}, &db.Post{}, &db.Comment{}, &db.Reply{}, &db.Like{},
		&db.PostView{}, &db.UserBlock{}, &db.Setting{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	db.DB = gdb

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	viewer := db.User{Username: "viewer", Password: string(hashed)}
	author := db.User{Username: "author", Password: string(hashed)}
	blocked := db.User{Username: "blocked", Password: string(hashed)}
	for _, u := range []*db.User{&viewer, &author, &blocked} {
		if err := gdb.Create(u).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}

	// 观看者拉黑了一位作者
	if err := gdb.Create(&db.UserBlock{BlockerID: viewer.ID, BlockedID: blocked.ID}).Error; err != nil {
		t.Fatalf("failed to create block: %v", err)
	}

	now := time.Now().UTC()
	posts := make([]db.Post, 0, 6)
	for i := 0; i < 5; i++ {
		post := db.Post{
			AuthorID:   author.ID,
			Body:       fmt.Sprintf("confession number %d #latenight", i+1),
			Status:     db.StatusActive,
			Visibility: db.VisibilityPublic,
			LikeCount:  i * 2,
		}
		post.CreatedAt = now.Add(-time.Duration(i+1) * time.Hour)
		if err := gdb.Create(&post).Error; err != nil {
			t.Fatalf("failed to create post: %v", err)
		}
		posts = append(posts, post)
	}

	// 被拉黑作者的帖子，不应出现在观看者的信息流里
	blockedPost := db.Post{
		AuthorID:   blocked.ID,
		Body:       "you should never see this",
		Status:     db.StatusActive,
		Visibility: db.VisibilityPublic,
	}
	blockedPost.CreatedAt = now.Add(-30 * time.Minute)
	if err := gdb.Create(&blockedPost).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	posts = append(posts, blockedPost)

	cfg := config.AppConfig{SessionSecret: "e2e-secret", GinMode: gin.TestMode}
	handler := router.SetupRouter(cfg)

	suite := &e2eSuite{
		handler: handler,
		viewer:  newLocalClient(handler),
		guest:   newLocalClient(handler),
		viewerU: viewer,
		author:  author,
		blocked: blocked,
		posts:   posts,
	}

	suite.login(t, suite.viewer, "viewer", "secret123")
	return suite
}

func (s *e2eSuite) login(t *testing.T, client *localClient, username, password string) {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "http://local/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login failed: %d %s", resp.StatusCode, body)
	}
}

func (s *e2eSuite) getJSON(t *testing.T, client *localClient, path string, out interface{}) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "http://local"+path, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (s *e2eSuite) postJSON(t *testing.T, client *localClient, path, payload string, out interface{}) int {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req := httptest.NewRequest(http.MethodPost, "http://local"+path, body)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

type feedResponse struct {
	Items []struct {
		ID       uint    `json:"id"`
		BodyHTML string  `json:"body_html"`
		IsOwn    bool    `json:"is_own"`
		AuthorID uint    `json:"author_id"`
		Score    float64 `json:"score"`
	} `json:"items"`
	NextCursor string `json:"next_cursor"`
	IsDone     bool   `json:"is_done"`
	Metadata   struct {
		TotalFiltered   int    `json:"total_filtered"`
		NonViewedCount  int    `json:"non_viewed_count"`
		ViewedCount     int    `json:"viewed_count"`
		BlockedFiltered int    `json:"blocked_filtered"`
		StrategyUsed    string `json:"strategy_used"`
		IsAuthenticated bool   `json:"is_authenticated"`
	} `json:"metadata"`
}

func TestFeedFlow(t *testing.T) {
	suite := setupSuite(t)

	var feed feedResponse
	if status := suite.getJSON(t, suite.viewer, "/api/feed?page_size=10", &feed); status != http.StatusOK {
		t.Fatalf("feed status = %d", status)
	}

	if !feed.Metadata.IsAuthenticated {
		t.Fatalf("logged-in viewer reported as anonymous")
	}
	if feed.Metadata.StrategyUsed != "prefer_non_viewed" {
		t.Fatalf("strategy = %q", feed.Metadata.StrategyUsed)
	}
	if len(feed.Items) != 5 {
		t.Fatalf("expected 5 visible posts, got %d", len(feed.Items))
	}
	if feed.Metadata.BlockedFiltered != 1 {
		t.Fatalf("expected 1 blocked post filtered, got %d", feed.Metadata.BlockedFiltered)
	}
	for _, item := range feed.Items {
		if item.AuthorID != 0 || item.IsOwn {
			t.Fatalf("author must be redacted for non-own posts: %+v", item)
		}
		if strings.Contains(item.BodyHTML, "you should never see this") {
			t.Fatalf("blocked author's post leaked into the feed")
		}
	}

	// 同一天内重复请求顺序一致
	var again feedResponse
	suite.getJSON(t, suite.viewer, "/api/feed?page_size=10", &again)
	for i := range feed.Items {
		if feed.Items[i].ID != again.Items[i].ID {
			t.Fatalf("feed order changed between identical requests")
		}
	}
}

func TestMarkViewedFlow(t *testing.T) {
	suite := setupSuite(t)
	target := suite.posts[0]

	var first struct {
		Success bool   `json:"success"`
		Type    string `json:"type"`
		ViewID  string `json:"view_id"`
	}
	path := fmt.Sprintf("/api/posts/%d/view", target.ID)
	if status := suite.postJSON(t, suite.viewer, path, `{"duration_ms": 1500}`, &first); status != http.StatusOK {
		t.Fatalf("mark viewed status = %d", status)
	}
	if !first.Success || first.Type != "created" || first.ViewID == "" {
		t.Fatalf("unexpected first outcome: %+v", first)
	}

	var second struct {
		Type string `json:"type"`
	}
	suite.postJSON(t, suite.viewer, path, `{"duration_ms": 500}`, &second)
	if second.Type != "updated" {
		t.Fatalf("repeat view type = %q, want updated", second.Type)
	}

	var reloaded db.Post
	if err := db.DB.First(&reloaded, target.ID).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if reloaded.ViewCount != 1 {
		t.Fatalf("view_count = %d, want 1 after two marks", reloaded.ViewCount)
	}

	// 标记后的帖子从 prefer_non_viewed 页里消失
	var feed feedResponse
	suite.getJSON(t, suite.viewer, "/api/feed?page_size=3", &feed)
	for _, item := range feed.Items {
		if item.ID == target.ID {
			t.Fatalf("viewed post still present while unseen supply remains")
		}
	}

	// 匿名观看者得到软失败而不是错误
	var anon struct {
		Success bool   `json:"success"`
		Type    string `json:"type"`
		Reason  string `json:"reason"`
	}
	if status := suite.postJSON(t, suite.guest, path, "", &anon); status != http.StatusOK {
		t.Fatalf("anonymous mark status = %d", status)
	}
	if !anon.Success || anon.Type != "skipped" || anon.Reason != "not_authenticated" {
		t.Fatalf("unexpected anonymous outcome: %+v", anon)
	}

	// 不存在的帖子
	if status := suite.postJSON(t, suite.viewer, "/api/posts/99999/view", "", nil); status != http.StatusNotFound {
		t.Fatalf("missing post status = %d, want 404", status)
	}
}

func TestDiscoverEndpoints(t *testing.T) {
	suite := setupSuite(t)

	var popular struct {
		Items []struct {
			ID    uint    `json:"id"`
			Score float64 `json:"score"`
		} `json:"items"`
	}
	if status := suite.getJSON(t, suite.viewer, "/api/discover/popular?timeframe=day&limit=3", &popular); status != http.StatusOK {
		t.Fatalf("popular status = %d", status)
	}
	if len(popular.Items) == 0 {
		t.Fatalf("expected popular posts")
	}
	for i := 1; i < len(popular.Items); i++ {
		if popular.Items[i].Score > popular.Items[i-1].Score {
			t.Fatalf("popular scores not descending")
		}
	}

	if status := suite.getJSON(t, suite.viewer, "/api/discover/popular?timeframe=year", nil); status != http.StatusBadRequest {
		t.Fatalf("invalid timeframe status = %d, want 400", status)
	}
	if status := suite.getJSON(t, suite.viewer, "/api/discover/trending?timeframe=month", nil); status != http.StatusBadRequest {
		t.Fatalf("trending must reject month, got %d", status)
	}

	// 趋势接口：没有近期活跃时允许为空，但必须返回 200
	var trending struct {
		Items []struct {
			ID uint `json:"id"`
		} `json:"items"`
	}
	if status := suite.getJSON(t, suite.viewer, "/api/discover/trending?timeframe=day", &trending); status != http.StatusOK {
		t.Fatalf("trending status = %d", status)
	}

	var topics struct {
		Topics []string `json:"topics"`
	}
	if status := suite.getJSON(t, suite.viewer, "/api/discover/topics?timeframe=day&limit=5", &topics); status != http.StatusOK {
		t.Fatalf("topics status = %d", status)
	}
	if len(topics.Topics) == 0 {
		t.Fatalf("topics must never be empty when posts exist")
	}

	// 种子数据里带 #latenight 标签
	foundTag := false
	for _, topic := range topics.Topics {
		if topic == "#latenight" {
			foundTag = true
		}
	}
	if !foundTag {
		t.Fatalf("expected #latenight in %v", topics.Topics)
	}
}

func TestFeedRejectsBadCursor(t *testing.T) {
	suite := setupSuite(t)

	if status := suite.getJSON(t, suite.viewer, "/api/feed?cursor=%21%21bogus", nil); status != http.StatusBadRequest {
		t.Fatalf("bad cursor status = %d, want 400", status)
	}
}

func TestFeedRejectsMalformedQueryParams(t *testing.T) {
	suite := setupSuite(t)

	// 畸形的分页与过滤参数必须显式拒绝，而不是静默回退默认值
	bad := []string{
		"/api/feed?page_size=abc",
		"/api/feed?page_size=-3",
		"/api/feed?page_size=0",
		"/api/feed?include_viewed=maybe",
		"/api/discover/popular?limit=abc",
		"/api/discover/topics?limit=-1",
	}
	for _, path := range bad {
		if status := suite.getJSON(t, suite.viewer, path, nil); status != http.StatusBadRequest {
			t.Fatalf("GET %s = %d, want 400", path, status)
		}
	}

	// 缺省与合法取值不受影响
	if status := suite.getJSON(t, suite.viewer, "/api/feed?page_size=3&include_viewed=true", nil); status != http.StatusOK {
		t.Fatalf("valid params rejected: %d", status)
	}
	if status := suite.getJSON(t, suite.viewer, "/api/feed", nil); status != http.StatusOK {
		t.Fatalf("omitted params rejected: %d", status)
	}
}
