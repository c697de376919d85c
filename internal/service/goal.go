package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
)

type GoalService struct {
	db        *sqlx.DB
	repo      repository.GoalRepository
	telemetry *telemetry.Metrics
}

func NewGoalService(db *sqlx.DB, repo repository.GoalRepository, telemetry *telemetry.Metrics) *GoalService {
	return &GoalService{
		db:        db,
		repo:      repo,
		telemetry: telemetry,
	}
}

func (s *GoalService) Create(userID, title string, target int) (*model.Goal, error) {
	goal, err := ledger.NewGoal(title, target)
	if err != nil {
		s.telemetry.Rejection(ledger.OpGoalCreate)
		return nil, err
	}

	now := time.Now()
	goal.ID = uuid.New().String()
	goal.UserID = userID
	goal.CreatedAt = now
	goal.UpdatedAt = now

	err = s.repo.Create(&goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return &goal, nil
}

func (s *GoalService) ByID(userID, goalID string) (*model.Goal, error) {
	return s.repo.ByID(userID, goalID)
}

func (s *GoalService) Goals(userID, sortBy string) ([]*model.Goal, error) {
	return s.repo.Goals(userID, sortBy)
}

func (s *GoalService) CountUserGoals(userID string) (int, error) {
	return s.repo.CountUserGoals(userID)
}

// AddProgress moves a goal's progress by amount, clamped to [0, target].
func (s *GoalService) AddProgress(ctx context.Context, userID, goalID string, amount int) (*model.Goal, error) {
	goal, err := s.update(ctx, userID, goalID, func(g model.Goal) (model.Goal, error) {
		return ledger.ApplyGoalProgress(g, amount)
	})
	if err != nil {
		if ledger.IsRejection(err) {
			s.telemetry.Rejection(ledger.OpGoalUpdate)
		}
		return nil, err
	}

	s.telemetry.GoalProgress()
	return goal, nil
}

func (s *GoalService) Reset(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	return s.update(ctx, userID, goalID, func(g model.Goal) (model.Goal, error) {
		return ledger.ResetGoal(g), nil
	})
}

func (s *GoalService) Delete(userID, goalID string) error {
	return s.repo.Delete(userID, goalID)
}

func (s *GoalService) update(ctx context.Context, userID, goalID string, op func(model.Goal) (model.Goal, error)) (*model.Goal, error) {
	var result *model.Goal

	err := repository.Transact(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		// Ownership is part of the lookup: another user's goal is not found.
		current, err := repo.ByIDForUpdate(userID, goalID)
		if err != nil {
			return err
		}

		next, err := op(*current)
		if err != nil {
			return err
		}

		err = repo.Update(&next)
		if err != nil {
			return fmt.Errorf("failed to save goal: %w", err)
		}

		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
