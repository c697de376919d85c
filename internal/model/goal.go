package model

import (
	"time"
)

type Goal struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	Target    int       `db:"target" json:"target"`
	Progress  int       `db:"progress" json:"progress"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (g *Goal) Completed() bool {
	return g.Progress >= g.Target
}

func (g *Goal) Percent() int {
	return Percent(g.Progress, g.Target)
}
