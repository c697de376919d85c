package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/storage"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrDemoDisabled = errors.New("demo mode is disabled")
	ErrInvalidSeed  = errors.New("invalid demo seed")
)

// Resetter restores the demo dataset. A failed reset must leave the live
// data as it was.
type Resetter interface {
	Reset(ctx context.Context) error
}

type DemoService struct {
	resetter  Resetter
	enabled   bool
	timeout   time.Duration
	telemetry *telemetry.Metrics
}

func NewDemoService(resetter Resetter, enabled bool, timeout time.Duration, telemetry *telemetry.Metrics) *DemoService {
	return &DemoService{
		resetter:  resetter,
		enabled:   enabled,
		timeout:   timeout,
		telemetry: telemetry,
	}
}

func (s *DemoService) Enabled() bool {
	return s.enabled && s.resetter != nil
}

func (s *DemoService) Reset(ctx context.Context) error {
	if !s.Enabled() {
		return ErrDemoDisabled
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.resetter.Reset(ctx)
	s.telemetry.DemoReset(err == nil)
	if err != nil {
		slog.Error("demo reset failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("demo reset failed: %w", err)
	}

	slog.Info("demo data reset", "duration", time.Since(start))
	return nil
}

// CommandResetter runs an external command, typically a database CLI that
// restores a dump. The command is run through sh.
type CommandResetter struct {
	Command string
}

func (r *CommandResetter) Reset(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", r.Command)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		output := strings.TrimSpace(out.String())
		if ctx.Err() != nil {
			return fmt.Errorf("reset command timed out: %w", ctx.Err())
		}
		if output != "" {
			return fmt.Errorf("reset command failed: %w: %s", err, output)
		}
		return fmt.Errorf("reset command failed: %w", err)
	}
	return nil
}

// DemoSeed is the dataset the built-in resetter restores.
type DemoSeed struct {
	Users []DemoUser `yaml:"users"`
	Feed  []DemoPost `yaml:"feed"`
}

type DemoUser struct {
	Email    string      `yaml:"email"`
	Name     string      `yaml:"name"`
	Password string      `yaml:"password"`
	Metrics  DemoMetrics `yaml:"metrics"`
	Goals    []DemoGoal  `yaml:"goals"`
}

type DemoMetrics struct {
	DailyGoal     int `yaml:"daily_goal"`
	WeeklyGoal    int `yaml:"weekly_goal"`
	MonthlyGoal   int `yaml:"monthly_goal"`
	DailyPlayed   int `yaml:"daily_played"`
	WeeklyPlayed  int `yaml:"weekly_played"`
	MonthlyPlayed int `yaml:"monthly_played"`
	HighScore     int `yaml:"high_score"`
}

type DemoGoal struct {
	Title    string `yaml:"title"`
	Target   int    `yaml:"target"`
	Progress int    `yaml:"progress"`
}

type DemoPost struct {
	By         string `yaml:"by"`
	Text       string `yaml:"text"`
	Kind       string `yaml:"kind"`
	MinutesAgo int    `yaml:"minutes_ago"`
}

// ParseDemoSeed decodes and validates a seed. Missing goals fall back to the
// defaults of a new account.
func ParseDemoSeed(data []byte) (*DemoSeed, error) {
	var seed DemoSeed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(&seed)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	seen := make(map[string]bool)
	for i := range seed.Users {
		u := &seed.Users[i]
		u.Email = normalizeEmail(u.Email)
		if u.Email == "" {
			return nil, fmt.Errorf("%w: user %d has no email", ErrInvalidSeed, i)
		}
		if seen[u.Email] {
			return nil, fmt.Errorf("%w: duplicate user %s", ErrInvalidSeed, u.Email)
		}
		seen[u.Email] = true

		if u.Metrics.DailyGoal == 0 && u.Metrics.WeeklyGoal == 0 && u.Metrics.MonthlyGoal == 0 {
			u.Metrics.DailyGoal = model.DefaultDailyGoal
			u.Metrics.WeeklyGoal = model.DefaultWeeklyGoal
			u.Metrics.MonthlyGoal = model.DefaultMonthlyGoal
		}
		err = ledger.Validate(u.Metrics.model())
		if err != nil {
			return nil, fmt.Errorf("%w: metrics of %s: %w", ErrInvalidSeed, u.Email, err)
		}

		for _, g := range u.Goals {
			_, err = ledger.NewGoal(g.Title, g.Target)
			if err != nil {
				return nil, fmt.Errorf("%w: goal of %s: %w", ErrInvalidSeed, u.Email, err)
			}
			if g.Progress < 0 || g.Progress > g.Target {
				return nil, fmt.Errorf("%w: goal %q progress out of range", ErrInvalidSeed, g.Title)
			}
		}
	}

	for i, p := range seed.Feed {
		_, err = ledger.NewFeedEntry(p.By, p.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: feed post %d: %w", ErrInvalidSeed, i, err)
		}
		switch p.Kind {
		case "":
			seed.Feed[i].Kind = model.FeedKindMessage
		case model.FeedKindMessage, model.FeedKindAchievement:
		default:
			return nil, fmt.Errorf("%w: feed post %d has unknown kind %q", ErrInvalidSeed, i, p.Kind)
		}
	}

	return &seed, nil
}

func (m DemoMetrics) model() model.Metrics {
	return model.Metrics{
		DailyGoal:     m.DailyGoal,
		WeeklyGoal:    m.WeeklyGoal,
		MonthlyGoal:   m.MonthlyGoal,
		DailyPlayed:   m.DailyPlayed,
		WeeklyPlayed:  m.WeeklyPlayed,
		MonthlyPlayed: m.MonthlyPlayed,
		HighScore:     m.HighScore,
	}
}

// SeedSource loads the raw seed document.
type SeedSource func(ctx context.Context) ([]byte, error)

func EmbeddedSeed(data []byte) SeedSource {
	return func(context.Context) ([]byte, error) {
		return data, nil
	}
}

// StoredSeed reads the seed from object storage.
func StoredSeed(store storage.Storage, key string) SeedSource {
	return func(ctx context.Context) ([]byte, error) {
		rc, err := store.Open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed %s: %w", key, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed %s: %w", key, err)
		}
		return data, nil
	}
}

// SeedResetter clears the feed and rewrites the demo users' metrics and goals
// from the seed in one transaction. Users not in the seed keep their data.
type SeedResetter struct {
	db          *sqlx.DB
	source      SeedSource
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	metricsRepo repository.MetricsRepository
	goalRepo    repository.GoalRepository
	feedRepo    repository.FeedRepository
}

func NewSeedResetter(
	db *sqlx.DB,
	source SeedSource,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	metricsRepo repository.MetricsRepository,
	goalRepo repository.GoalRepository,
	feedRepo repository.FeedRepository,
) *SeedResetter {
	return &SeedResetter{
		db:          db,
		source:      source,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		metricsRepo: metricsRepo,
		goalRepo:    goalRepo,
		feedRepo:    feedRepo,
	}
}

func (r *SeedResetter) Reset(ctx context.Context) error {
	data, err := r.source(ctx)
	if err != nil {
		return err
	}

	seed, err := ParseDemoSeed(data)
	if err != nil {
		return err
	}

	// Hash outside the transaction, bcrypt is slow.
	hashes := make(map[string]string)
	for _, u := range seed.Users {
		if u.Password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		hashes[u.Email] = string(hash)
	}

	return repository.Transact(ctx, r.db, func(tx *sqlx.Tx) error {
		err := r.feedRepo.WithTx(tx).DeleteAll()
		if err != nil {
			return fmt.Errorf("failed to clear feed: %w", err)
		}

		userIDs := make(map[string]string, len(seed.Users))
		for _, u := range seed.Users {
			userID, err := r.seedUser(tx, u, hashes[u.Email])
			if err != nil {
				return fmt.Errorf("failed to seed %s: %w", u.Email, err)
			}
			userIDs[strings.ToLower(strings.TrimSpace(u.Name))] = userID
		}

		now := time.Now()
		feed := r.feedRepo.WithTx(tx)
		// Oldest first, so ids sort the same way as timestamps.
		for i := len(seed.Feed) - 1; i >= 0; i-- {
			p := seed.Feed[i]
			entry, _ := ledger.NewFeedEntry(p.By, p.Text)
			entry.Kind = p.Kind
			stampEntry(&entry, userIDs[strings.ToLower(entry.Author)])
			entry.CreatedAt = now.Add(-time.Duration(p.MinutesAgo) * time.Minute)

			err = feed.Create(&entry)
			if err != nil {
				return fmt.Errorf("failed to seed feed: %w", err)
			}
		}
		return nil
	})
}

func (r *SeedResetter) seedUser(tx *sqlx.Tx, u DemoUser, hash string) (string, error) {
	now := time.Now()
	users := r.userRepo.WithTx(tx)

	user, err := users.ByEmail(u.Email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user = &model.User{
			ID:              uuid.New().String(),
			Email:           u.Email,
			EmailVerifiedAt: &now,
			CreatedAt:       now,
		}
		if hash != "" {
			user.PasswordHash = &hash
		}
		err = users.Create(user)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	case hash != "":
		user.PasswordHash = &hash
		err = users.Update(user)
		if err != nil {
			return "", err
		}
	}

	err = r.profileRepo.WithTx(tx).UpdateName(user.ID, u.Name)
	if errors.Is(err, repository.ErrProfileNotFound) {
		err = r.profileRepo.WithTx(tx).Create(&model.Profile{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Name:      u.Name,
			CreatedAt: now,
		})
	}
	if err != nil {
		return "", err
	}

	metrics := r.metricsRepo.WithTx(tx)
	m, err := metrics.ByUserID(user.ID)
	switch {
	case errors.Is(err, repository.ErrMetricsNotFound):
		m = model.NewMetrics(uuid.New().String(), user.ID, now)
		applySeedMetrics(m, u.Metrics)
		err = metrics.Create(m)
	case err != nil:
		return "", err
	default:
		applySeedMetrics(m, u.Metrics)
		err = metrics.Update(m)
	}
	if err != nil {
		return "", err
	}

	goals := r.goalRepo.WithTx(tx)
	err = goals.DeleteByUser(user.ID)
	if err != nil {
		return "", err
	}
	for i, g := range u.Goals {
		created := now.Add(time.Duration(i-len(u.Goals)) * time.Second)
		err = goals.Create(&model.Goal{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Title:     strings.TrimSpace(g.Title),
			Target:    g.Target,
			Progress:  g.Progress,
			CreatedAt: created,
			UpdatedAt: created,
		})
		if err != nil {
			return "", err
		}
	}

	return user.ID, nil
}

func applySeedMetrics(m *model.Metrics, s DemoMetrics) {
	m.DailyGoal, m.WeeklyGoal, m.MonthlyGoal = s.DailyGoal, s.WeeklyGoal, s.MonthlyGoal
	m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed = s.DailyPlayed, s.WeeklyPlayed, s.MonthlyPlayed
	m.HighScore = s.HighScore
}
