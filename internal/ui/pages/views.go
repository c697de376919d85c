package pages

import "github.com/joshuanoeldeke/RespectCircle/internal/model"

// AuthData drives the sign-in page. Mode is "password", "signup", "magic"
// or "forgot".
type AuthData struct {
	Mode          string
	Email         string
	Error         string
	GoogleEnabled bool
}

func (d AuthData) mode() string {
	if d.Mode == "" {
		return "password"
	}
	return d.Mode
}

type DashboardData struct {
	Metrics        *model.Metrics
	Goals          []*model.Goal
	Sort           string
	Feed           []*model.FeedEntry
	FeedPage       int
	FeedMore       bool
	DemoEnabled    bool
	ArchiveEnabled bool
}

type SettingsData struct {
	Email       string
	Name        string
	HasPassword bool
}
