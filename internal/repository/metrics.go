package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
)

var (
	ErrMetricsNotFound = errors.New("metrics not found")
	ErrMetricsExist    = errors.New("metrics already exist for user")
)

type MetricsRepository interface {
	Create(m *model.Metrics) error
	ByUserID(userID string) (*model.Metrics, error)
	// ByUserIDForUpdate reads the row that the current transaction is about
	// to rewrite.
	ByUserIDForUpdate(userID string) (*model.Metrics, error)
	Update(m *model.Metrics) error
	UserIDs() ([]string, error)
	WithTx(tx *sqlx.Tx) MetricsRepository
}

type metricsRepository struct {
	db sqlx.Ext
}

func NewMetricsRepository(db *sqlx.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) WithTx(tx *sqlx.Tx) MetricsRepository {
	return &metricsRepository{db: tx}
}

func (r *metricsRepository) Create(m *model.Metrics) error {
	query := `
		INSERT INTO metrics (
			id, user_id,
			daily_goal, weekly_goal, monthly_goal,
			daily_played, weekly_played, monthly_played,
			high_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(query,
		m.ID, m.UserID,
		m.DailyGoal, m.WeeklyGoal, m.MonthlyGoal,
		m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed,
		m.HighScore, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMetricsExist
		}
		return err
	}
	return nil
}

func (r *metricsRepository) ByUserID(userID string) (*model.Metrics, error) {
	return r.byUserID(`SELECT * FROM metrics WHERE user_id = $1`, userID)
}

func (r *metricsRepository) ByUserIDForUpdate(userID string) (*model.Metrics, error) {
	return r.byUserID(forUpdate(r.db, `SELECT * FROM metrics WHERE user_id = $1`), userID)
}

func (r *metricsRepository) byUserID(query, userID string) (*model.Metrics, error) {
	m := &model.Metrics{}
	err := sqlx.Get(r.db, m, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMetricsNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *metricsRepository) Update(m *model.Metrics) error {
	m.UpdatedAt = time.Now()

	query := `
		UPDATE metrics
		SET daily_goal = $1, weekly_goal = $2, monthly_goal = $3,
		    daily_played = $4, weekly_played = $5, monthly_played = $6,
		    high_score = $7, updated_at = $8
		WHERE user_id = $9
	`
	result, err := r.db.Exec(query,
		m.DailyGoal, m.WeeklyGoal, m.MonthlyGoal,
		m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed,
		m.HighScore, m.UpdatedAt,
		m.UserID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMetricsNotFound
	}

	return nil
}

func (r *metricsRepository) UserIDs() ([]string, error) {
	var ids []string
	err := sqlx.Select(r.db, &ids, `SELECT user_id FROM metrics ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
