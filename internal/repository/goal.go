package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
)

const (
	GoalSortRecent   = "recent"
	GoalSortProgress = "progress"
	GoalSortTitle    = "title"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(userID, goalID string) (*model.Goal, error)
	ByIDForUpdate(userID, goalID string) (*model.Goal, error)
	Goals(userID, sortBy string) ([]*model.Goal, error)
	CountUserGoals(userID string) (int, error)
	Update(goal *model.Goal) error
	Delete(userID, goalID string) error
	DeleteByUser(userID string) error
	WithTx(tx *sqlx.Tx) GoalRepository
}

type goalRepository struct {
	db sqlx.Ext
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) WithTx(tx *sqlx.Tx) GoalRepository {
	return &goalRepository{db: tx}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, title, target, progress, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Target,
		goal.Progress,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(userID, goalID string) (*model.Goal, error) {
	return r.byID(`SELECT * FROM goals WHERE id = $1 AND user_id = $2`, userID, goalID)
}

func (r *goalRepository) ByIDForUpdate(userID, goalID string) (*model.Goal, error) {
	return r.byID(forUpdate(r.db, `SELECT * FROM goals WHERE id = $1 AND user_id = $2`), userID, goalID)
}

func (r *goalRepository) byID(query, userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := sqlx.Get(r.db, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepository) Goals(userID, sortBy string) ([]*model.Goal, error) {
	var goals []*model.Goal

	var orderBy string
	switch sortBy {
	case GoalSortProgress:
		orderBy = "ORDER BY CAST(progress AS REAL) / target DESC, updated_at DESC"
	case GoalSortTitle:
		orderBy = "ORDER BY LOWER(title) ASC"
	default: // GoalSortRecent or empty
		orderBy = "ORDER BY created_at DESC, id DESC"
	}

	query := `SELECT * FROM goals WHERE user_id = $1 ` + orderBy

	err := sqlx.Select(r.db, &goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) CountUserGoals(userID string) (int, error) {
	var count int
	err := sqlx.Get(r.db, &count, `SELECT COUNT(*) FROM goals WHERE user_id = $1`, userID)
	return count, err
}

func (r *goalRepository) Update(goal *model.Goal) error {
	goal.UpdatedAt = time.Now()

	query := `UPDATE goals
	          SET title = $1, target = $2, progress = $3, updated_at = $4
	          WHERE id = $5 AND user_id = $6`

	result, err := r.db.Exec(query,
		goal.Title,
		goal.Target,
		goal.Progress,
		goal.UpdatedAt,
		goal.ID,
		goal.UserID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

func (r *goalRepository) Delete(userID, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(query, goalID, userID)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

func (r *goalRepository) DeleteByUser(userID string) error {
	_, err := r.db.Exec(`DELETE FROM goals WHERE user_id = $1`, userID)
	return err
}
