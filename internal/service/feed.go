package service

import (
	"context"
	"fmt"

	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
)

const maxFeedPageSize = 200

type FeedService struct {
	repo      repository.FeedRepository
	notifier  *Notifier
	telemetry *telemetry.Metrics
	pageSize  int
}

func NewFeedService(repo repository.FeedRepository, notifier *Notifier, telemetry *telemetry.Metrics, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &FeedService{
		repo:      repo,
		notifier:  notifier,
		telemetry: telemetry,
		pageSize:  pageSize,
	}
}

// Post appends a user-authored message. userID is empty for anonymous posts.
func (s *FeedService) Post(ctx context.Context, userID, author, text string) (*model.FeedEntry, error) {
	entry, err := ledger.NewFeedEntry(author, text)
	if err != nil {
		s.telemetry.Rejection(ledger.OpFeedPost)
		return nil, err
	}

	stampEntry(&entry, userID)

	err = s.repo.Create(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to post to feed: %w", err)
	}

	s.notifier.FeedPosted(ctx, &entry)
	return &entry, nil
}

// Recent lists the newest entries. page starts at 1; limit <= 0 uses the
// configured page size.
func (s *FeedService) Recent(page, limit int) ([]*model.FeedEntry, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	limit = min(limit, maxFeedPageSize)
	page = max(page, 1)

	return s.repo.Recent(limit, (page-1)*limit)
}

func (s *FeedService) PageSize() int {
	return s.pageSize
}
