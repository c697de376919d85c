package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/storage"
)

var ErrStorageDisabled = errors.New("file storage is not configured")

// Export is a point-in-time copy of everything a user owns.
type Export struct {
	ExportedAt time.Time          `json:"exported_at"`
	Email      string             `json:"email"`
	Name       string             `json:"name"`
	Metrics    *model.Metrics     `json:"metrics"`
	Goals      []*model.Goal      `json:"goals"`
	Feed       []*model.FeedEntry `json:"feed"`
}

type ExportService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	metricsRepo repository.MetricsRepository
	goalRepo    repository.GoalRepository
	feedRepo    repository.FeedRepository
	storage     storage.Storage
}

func NewExportService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	metricsRepo repository.MetricsRepository,
	goalRepo repository.GoalRepository,
	feedRepo repository.FeedRepository,
	storage storage.Storage,
) *ExportService {
	return &ExportService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		metricsRepo: metricsRepo,
		goalRepo:    goalRepo,
		feedRepo:    feedRepo,
		storage:     storage,
	}
}

func (s *ExportService) ArchiveEnabled() bool {
	return s.storage != nil
}

func (s *ExportService) Export(userID string) (*Export, error) {
	user, err := s.userRepo.ByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile, err := s.profileRepo.ByUserID(userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	metrics, err := s.metricsRepo.ByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	goals, err := s.goalRepo.Goals(userID, repository.GoalSortRecent)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}

	feed, err := s.feedRepo.ByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &Export{
		ExportedAt: time.Now().UTC(),
		Email:      user.Email,
		Name:       profile.DisplayName(),
		Metrics:    metrics,
		Goals:      goals,
		Feed:       feed,
	}, nil
}

func (s *ExportService) JSON(userID string) ([]byte, error) {
	export, err := s.Export(userID)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// Archive stores the export in object storage and returns a presigned
// download URL.
func (s *ExportService) Archive(ctx context.Context, userID string) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}

	data, err := s.JSON(userID)
	if err != nil {
		return "", err
	}

	key := ArchiveKey(userID, time.Now())
	err = s.storage.Save(ctx, key, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	url, err := s.storage.PresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign export url: %w", err)
	}

	slog.Info("export archived", "user_id", userID, "key", key)
	return url, nil
}

func ArchiveKey(userID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", userID, t.UTC().Format("20060102T150405Z"))
}
