package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
)

// Actor is the signed-in user a mutation is performed for. Name is the
// profile name credited in feed posts.
type Actor struct {
	UserID string
	Name   string
}

func (a Actor) DisplayName() string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return model.AnonymousName
	}
	return name
}

type LogResult struct {
	Metrics  *model.Metrics
	Achieved []ledger.Period
	Entries  []*model.FeedEntry
}

// Reset triggers, used as a metrics label.
const (
	ResetTriggerManual   = "manual"
	ResetTriggerRollover = "rollover"
)

type MetricsService struct {
	db          *sqlx.DB
	metricsRepo repository.MetricsRepository
	feedRepo    repository.FeedRepository
	notifier    *Notifier
	telemetry   *telemetry.Metrics
}

func NewMetricsService(
	db *sqlx.DB,
	metricsRepo repository.MetricsRepository,
	feedRepo repository.FeedRepository,
	notifier *Notifier,
	telemetry *telemetry.Metrics,
) *MetricsService {
	return &MetricsService{
		db:          db,
		metricsRepo: metricsRepo,
		feedRepo:    feedRepo,
		notifier:    notifier,
		telemetry:   telemetry,
	}
}

func (s *MetricsService) Metrics(userID string) (*model.Metrics, error) {
	return s.metricsRepo.ByUserID(userID)
}

// Initialize creates the metrics row for a new user inside tx.
func (s *MetricsService) Initialize(tx *sqlx.Tx, userID string) error {
	m := model.NewMetrics(uuid.New().String(), userID, time.Now())
	err := s.metricsRepo.WithTx(tx).Create(m)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	return nil
}

// LogTime applies minutes and appends one achievement post per goal crossed,
// all in one transaction.
func (s *MetricsService) LogTime(ctx context.Context, actor Actor, minutes int) (*LogResult, error) {
	result := &LogResult{}

	err := repository.Transact(ctx, s.db, func(tx *sqlx.Tx) error {
		current, err := s.metricsRepo.WithTx(tx).ByUserIDForUpdate(actor.UserID)
		if err != nil {
			return fmt.Errorf("failed to load metrics: %w", err)
		}

		next, crossed, err := ledger.ApplyTimeLog(*current, minutes)
		if err != nil {
			return err
		}

		err = s.metricsRepo.WithTx(tx).Update(&next)
		if err != nil {
			return fmt.Errorf("failed to save metrics: %w", err)
		}

		feed := s.feedRepo.WithTx(tx)
		for _, p := range crossed {
			entry := ledger.Achievement(actor.Name, p)
			stampEntry(&entry, actor.UserID)
			err = feed.Create(&entry)
			if err != nil {
				return fmt.Errorf("failed to post achievement: %w", err)
			}
			result.Entries = append(result.Entries, &entry)
		}

		result.Metrics = &next
		result.Achieved = crossed
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	s.telemetry.MinutesLogged(minutes)
	s.notifier.Achievements(ctx, actor, result.Metrics, result.Achieved)

	if len(result.Achieved) > 0 {
		slog.Info("goals achieved", "user_id", actor.UserID, "periods", result.Achieved)
	}
	return result, nil
}

func (s *MetricsService) Reset(ctx context.Context, userID, scope string) (*model.Metrics, error) {
	parsed, err := ledger.ParseScope(scope)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	m, err := s.mutate(ctx, userID, func(m model.Metrics) (model.Metrics, error) {
		return ledger.ResetMetric(m, parsed)
	})
	if err != nil {
		return nil, err
	}

	s.telemetry.Reset(string(parsed), ResetTriggerManual)
	return m, nil
}

func (s *MetricsService) SetPlayed(ctx context.Context, userID string, v ledger.Values) (*model.Metrics, error) {
	return s.mutate(ctx, userID, func(m model.Metrics) (model.Metrics, error) {
		return ledger.SetPlayed(m, v)
	})
}

func (s *MetricsService) SetGoals(ctx context.Context, userID string, v ledger.Values) (*model.Metrics, error) {
	return s.mutate(ctx, userID, func(m model.Metrics) (model.Metrics, error) {
		return ledger.SetGoals(m, v)
	})
}

// RecordScore reports whether score became the new high score.
func (s *MetricsService) RecordScore(ctx context.Context, userID string, score int) (*model.Metrics, bool, error) {
	var isHigh bool
	m, err := s.mutate(ctx, userID, func(m model.Metrics) (model.Metrics, error) {
		next, high, err := ledger.RecordScore(m, score)
		isHigh = high
		return next, err
	})
	if err != nil {
		return nil, false, err
	}
	return m, isHigh, nil
}

// Rollover resets scope for every user. One user's failure does not stop the
// others; all failures are returned joined.
func (s *MetricsService) Rollover(ctx context.Context, scope ledger.Scope) (int, error) {
	userIDs, err := s.metricsRepo.UserIDs()
	if err != nil {
		return 0, fmt.Errorf("failed to list metrics: %w", err)
	}

	var errs []error
	reset := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, err = s.mutate(ctx, userID, func(m model.Metrics) (model.Metrics, error) {
			return ledger.ResetMetric(m, scope)
		})
		if err != nil {
			slog.Error("rollover failed for user", "error", err, "user_id", userID, "scope", scope)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		reset++
		s.telemetry.Reset(string(scope), ResetTriggerRollover)
	}

	slog.Info("rollover completed", "scope", scope, "users", reset, "failed", len(errs))
	return reset, errors.Join(errs...)
}

// mutate runs a ledger operation that produces no feed entries as one
// read-modify-write transaction.
func (s *MetricsService) mutate(ctx context.Context, userID string, op func(model.Metrics) (model.Metrics, error)) (*model.Metrics, error) {
	var result *model.Metrics

	err := repository.Transact(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := s.metricsRepo.WithTx(tx)

		current, err := repo.ByUserIDForUpdate(userID)
		if err != nil {
			return fmt.Errorf("failed to load metrics: %w", err)
		}

		next, err := op(*current)
		if err != nil {
			return err
		}

		err = repo.Update(&next)
		if err != nil {
			return fmt.Errorf("failed to save metrics: %w", err)
		}

		result = &next
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}
	return result, nil
}

func (s *MetricsService) recordRejection(err error) {
	if op := ledger.RejectionOp(err); op != "" {
		s.telemetry.Rejection(op)
	}
}

// stampEntry assigns identity and time to a feed entry built by the ledger.
func stampEntry(entry *model.FeedEntry, userID string) {
	entry.ID = uuid.Must(uuid.NewV7()).String()
	entry.CreatedAt = time.Now()
	if userID != "" {
		entry.UserID = &userID
	}
}
