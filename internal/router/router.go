package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/whisperwall/internal/config"
	"github.com/whisperwall/internal/db"
	"github.com/whisperwall/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("whisperwall_session", store))

	api := handler.NewAPI(db.DB, cfg.FeedPageSize)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)

	v1 := r.Group("/api")
	{
		v1.GET("/feed", api.GetFeed)
		v1.POST("/posts/:id/view", api.MarkViewed)

		discover := v1.Group("/discover")
		{
			discover.GET("/popular", api.GetPopular)
			discover.GET("/trending", api.GetTrending)
			discover.GET("/topics", api.GetTrendingTopics)
		}
	}

	return r
}
