package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/events"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
)

// Notifier runs the side effects that follow a committed write. None of
// them can fail the request; failures are logged.
type Notifier struct {
	publisher    events.Publisher
	emailService *EmailService
	userRepo     repository.UserRepository
	metrics      *telemetry.Metrics
}

func NewNotifier(publisher events.Publisher, emailService *EmailService, userRepo repository.UserRepository, metrics *telemetry.Metrics) *Notifier {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Notifier{
		publisher:    publisher,
		emailService: emailService,
		userRepo:     userRepo,
		metrics:      metrics,
	}
}

const publishTimeout = 2 * time.Second

func (n *Notifier) Achievements(ctx context.Context, actor Actor, m *model.Metrics, periods []ledger.Period) {
	if len(periods) == 0 {
		return
	}

	user, err := n.userRepo.ByID(actor.UserID)
	if err != nil {
		slog.Warn("achievement email skipped, user lookup failed", "error", err, "user_id", actor.UserID)
	}

	for _, p := range periods {
		played, goal := periodValues(m, p)

		n.metrics.Achievement(string(p))
		n.metrics.FeedPost(model.FeedKindAchievement)

		n.publish(ctx, events.Event{
			Type:   events.TypeAchievement,
			UserID: actor.UserID,
			Period: string(p),
			Author: actor.DisplayName(),
			Played: played,
			Goal:   goal,
		})

		if user != nil && n.emailService != nil {
			err = n.emailService.SendAchievementEmail(ctx, user.Email, actor.DisplayName(), p, played, goal)
			if err != nil {
				slog.Warn("failed to send achievement email", "error", err, "user_id", actor.UserID, "period", p)
			}
		}
	}
}

func (n *Notifier) FeedPosted(ctx context.Context, entry *model.FeedEntry) {
	n.metrics.FeedPost(entry.Kind)

	userID := ""
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	n.publish(ctx, events.Event{
		Type:      events.TypeFeed,
		UserID:    userID,
		Author:    entry.Author,
		Text:      entry.Text,
		Timestamp: entry.CreatedAt,
	})
}

func (n *Notifier) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := n.publisher.Publish(ctx, event)
	if err != nil {
		slog.Warn("failed to publish event", "error", err, "type", event.Type, "user_id", event.UserID)
	}
}

func periodValues(m *model.Metrics, p ledger.Period) (played, goal int) {
	switch p {
	case ledger.Daily:
		return m.DailyPlayed, m.DailyGoal
	case ledger.Weekly:
		return m.WeeklyPlayed, m.WeeklyGoal
	default:
		return m.MonthlyPlayed, m.MonthlyGoal
	}
}
