package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
)

// FeedRepository is append-only: entries are never updated. DeleteAll exists
// for demo resets.
type FeedRepository interface {
	Create(entry *model.FeedEntry) error
	Recent(limit, offset int) ([]*model.FeedEntry, error)
	ByUserID(userID string) ([]*model.FeedEntry, error)
	Count() (int, error)
	DeleteAll() error
	WithTx(tx *sqlx.Tx) FeedRepository
}

type feedRepository struct {
	db sqlx.Ext
}

func NewFeedRepository(db *sqlx.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) WithTx(tx *sqlx.Tx) FeedRepository {
	return &feedRepository{db: tx}
}

func (r *feedRepository) Create(entry *model.FeedEntry) error {
	query := `INSERT INTO feed_entries (id, user_id, author, text, kind, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.UserID,
		entry.Author,
		entry.Text,
		entry.Kind,
		entry.CreatedAt,
	)
	return err
}

// Recent lists entries newest first. Ids are UUIDv7, so they break ties
// between entries written in the same instant.
func (r *feedRepository) Recent(limit, offset int) ([]*model.FeedEntry, error) {
	entries := []*model.FeedEntry{}
	query := `SELECT * FROM feed_entries ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	err := sqlx.Select(r.db, &entries, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *feedRepository) ByUserID(userID string) ([]*model.FeedEntry, error) {
	entries := []*model.FeedEntry{}
	query := `SELECT * FROM feed_entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	err := sqlx.Select(r.db, &entries, query, userID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *feedRepository) Count() (int, error) {
	var count int
	err := sqlx.Get(r.db, &count, `SELECT COUNT(*) FROM feed_entries`)
	return count, err
}

func (r *feedRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM feed_entries`)
	return err
}
