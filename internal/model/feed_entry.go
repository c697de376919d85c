package model

import (
	"time"
)

const (
	FeedKindMessage     = "message"
	FeedKindAchievement = "achievement"
)

// FeedEntry is an immutable encouragement or achievement post.
type FeedEntry struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"-"`
	Author    string    `db:"author" json:"by"`
	Text      string    `db:"text" json:"text"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"time"`
}

// DisplayTime formats the creation time the way the feed shows it.
func (e *FeedEntry) DisplayTime() string {
	return e.CreatedAt.Format("2006-01-02 15:04")
}
