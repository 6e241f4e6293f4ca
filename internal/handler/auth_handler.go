package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/whisperwall/internal/db"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionUserKey      = "user_id"
	visitorCookieName   = "ww_visitor_id"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// Login 处理登录：校验密码并把用户 ID 写入会话。
// 账号体系本身是外部协作方，这里只负责解析"观看者身份或空"。
func (a *API) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	var user db.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "username": user.Username})
}

// Logout 清空会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// currentViewerID 从会话解析观看者身份，匿名时返回 0。
func currentViewerID(c *gin.Context) uint {
	session := sessions.Default(c)
	raw := session.Get(sessionUserKey)
	if raw == nil {
		return 0
	}
	if id, ok := raw.(uint); ok {
		return id
	}
	return 0
}

// ensureVisitorID 为匿名访客下发一个持久 cookie，仅用于请求日志诊断，
// 不参与洗牌种子（匿名观看者的种子约定为 0）。
func ensureVisitorID(c *gin.Context) string {
	if existing, err := c.Cookie(visitorCookieName); err == nil && existing != "" {
		return existing
	}
	visitorID := uuid.NewString()
	c.SetCookie(visitorCookieName, visitorID, visitorCookieMaxAge, "/", "", false, true)
	return visitorID
}
