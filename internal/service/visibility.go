package service

import (
	"strings"

	"github.com/whisperwall/internal/db"
)

// FilterVisible removes posts the viewer must not see: inactive posts,
// posts outside the requested visibility tier (default public), and posts
// whose author appears in the viewer's two-way block set.
// Pure function: no side effects, never fails. blockedCount reports how
// many posts were dropped for block reasons only, for page diagnostics.
func FilterVisible(posts []db.Post, blocked map[uint]struct{}, visibility string) (visible []db.Post, blockedCount int) {
	tier := strings.TrimSpace(visibility)
	if tier == "" {
		tier = db.VisibilityPublic
	}

	visible = make([]db.Post, 0, len(posts))
	for _, post := range posts {
		if post.Status != db.StatusActive {
			continue
		}
		if post.Visibility != tier {
			continue
		}
		if _, isBlocked := blocked[post.AuthorID]; isBlocked {
			blockedCount++
			continue
		}
		visible = append(visible, post)
	}

	return visible, blockedCount
}
