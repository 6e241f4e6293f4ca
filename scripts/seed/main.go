package main

import (
	"fmt"
	"log"
	"time"

	"github.com/whisperwall/internal/config"
	"github.com/whisperwall/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 测试数据生成器：用户、告白帖子、点赞、评论与拉黑关系
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	users := createTestUsers()
	posts := createTestPosts(users)
	createTestEngagement(users, posts)

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %d 个 (密码均为 user123)\n", len(users))
	fmt.Printf("帖子: %d 条\n", len(posts))
}

// 创建测试用户
func createTestUsers() []db.User {
	var count int64
	db.DB.Model(&db.User{}).Count(&count)
	if count > 0 {
		fmt.Println("用户已存在，跳过创建")
		var existing []db.User
		db.DB.Find(&existing)
		return existing
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("user123"), bcrypt.DefaultCost)

	names := []string{"luna", "arbor", "finch", "quill", "ember", "reed"}
	users := make([]db.User, 0, len(names))
	for _, name := range names {
		user := db.User{Username: name, Password: string(hashed)}
		if err := db.DB.Create(&user).Error; err != nil {
			log.Fatal("创建用户失败:", err)
		}
		users = append(users, user)
	}

	fmt.Println("✅ 测试用户创建完成")
	return users
}

// 创建测试帖子：覆盖关键词分类与话题标签
func createTestPosts(users []db.User) []db.Post {
	var count int64
	db.DB.Model(&db.Post{}).Count(&count)
	if count > 0 {
		fmt.Println("帖子已存在，跳过创建")
		var existing []db.Post
		db.DB.Find(&existing)
		return existing
	}

	bodies := []string{
		"I finally told my crush how I feel. No reply yet. #nervous",
		"My roommate eats my snacks and I have never said a word. #dormlife",
		"Failed the exam I studied three weeks for. The stress is unreal.",
		"I secretly love my boring job. My coworkers would never guess.",
		"Told my family I was fine at dinner. I was not fine.",
		"Confession: I reread old messages from a friend who ghosted me.",
		"The campus coffee cart guy remembers my order and it makes my day. #smallwins",
		"I regret not taking the internship abroad. Still think about it.",
	}

	now := time.Now().UTC()
	posts := make([]db.Post, 0, len(bodies))
	for i, body := range bodies {
		post := db.Post{
			AuthorID:   users[i%len(users)].ID,
			Body:       body,
			Status:     db.StatusActive,
			Visibility: db.VisibilityPublic,
		}
		post.CreatedAt = now.Add(-time.Duration(i*5) * time.Hour)
		if err := db.DB.Create(&post).Error; err != nil {
			log.Fatal("创建帖子失败:", err)
		}
		posts = append(posts, post)
	}

	fmt.Println("✅ 测试帖子创建完成")
	return posts
}

// 为帖子生成点赞与评论，并同步协作方维护的计数器
func createTestEngagement(users []db.User, posts []db.Post) {
	var count int64
	db.DB.Model(&db.Like{}).Count(&count)
	if count > 0 {
		fmt.Println("互动数据已存在，跳过创建")
		return
	}

	now := time.Now().UTC()
	for i, post := range posts {
		likes := (i*3 + 1) % 7
		for j := 0; j < likes; j++ {
			liker := users[(i+j+1)%len(users)]
			if liker.ID == post.AuthorID {
				continue
			}
			like := db.Like{PostID: post.ID, UserID: liker.ID}
			like.CreatedAt = now.Add(-time.Duration(j) * time.Hour)
			if err := db.DB.Create(&like).Error; err != nil {
				log.Fatal("创建点赞失败:", err)
			}
			db.DB.Model(&db.Post{}).Where("id = ?", post.ID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1"))
		}

		if i%2 == 0 {
			author := users[(i+2)%len(users)]
			comment := db.Comment{
				PostID:   post.ID,
				AuthorID: author.ID,
				Body:     "Been there. You are not alone.",
				Status:   db.StatusActive,
			}
			comment.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
			if err := db.DB.Create(&comment).Error; err != nil {
				log.Fatal("创建评论失败:", err)
			}
			db.DB.Model(&db.Post{}).Where("id = ?", post.ID).
				Updates(map[string]interface{}{
					"comment_count":     1,
					"participant_count": 1,
				})
		}
	}

	// 一条拉黑关系，便于验证双向过滤
	block := db.UserBlock{BlockerID: users[0].ID, BlockedID: users[1].ID}
	if err := db.DB.Create(&block).Error; err != nil {
		log.Fatal("创建拉黑关系失败:", err)
	}

	fmt.Println("✅ 测试互动数据创建完成")
}
