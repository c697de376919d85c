package model

import "time"

// AnonymousName is the feed author used when a profile has no name yet.
const AnonymousName = "Anonymous"

type Profile struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName is the name credited in feed posts.
func (p *Profile) DisplayName() string {
	if p == nil || p.Name == "" {
		return AnonymousName
	}
	return p.Name
}
