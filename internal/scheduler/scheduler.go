// Package scheduler rolls the played counters over at the start of each
// day, week and month and prunes expired login tokens.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
)

const (
	JobDailyRollover   = "rollover-daily"
	JobWeeklyRollover  = "rollover-weekly"
	JobMonthlyRollover = "rollover-monthly"
	JobTokenCleanup    = "token-cleanup"
)

// Tokens are kept a day past expiry so failed logins can still be told the
// link expired rather than that it never existed.
const tokenRetention = 24 * time.Hour

type Roller interface {
	Rollover(ctx context.Context, scope ledger.Scope) (int, error)
}

type TokenCleaner interface {
	CleanupExpired(olderThan time.Duration) (int64, error)
}

type jobDef struct {
	name string
	def  gocron.JobDefinition
	task gocron.Task
}

// Scheduler wraps a gocron scheduler with the rollover jobs registered.
type Scheduler struct {
	scheduler gocron.Scheduler
	roller    Roller
	tokens    TokenCleaner
	jobs      map[string]gocron.Job

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs in loc. Periods start at midnight local time,
// weeks on Monday. tokens may be nil.
func New(roller Roller, tokens TokenCleaner, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		roller:    roller,
		tokens:    tokens,
		jobs:      make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
	}

	midnight := gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))
	defs := []jobDef{
		{JobDailyRollover, gocron.DailyJob(1, midnight), gocron.NewTask(sched.rollover, ledger.ScopeDaily)},
		{JobWeeklyRollover, gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), midnight), gocron.NewTask(sched.rollover, ledger.ScopeWeekly)},
		{JobMonthlyRollover, gocron.MonthlyJob(1, gocron.NewDaysOfTheMonth(1), midnight), gocron.NewTask(sched.rollover, ledger.ScopeMonthly)},
	}
	if tokens != nil {
		defs = append(defs, jobDef{JobTokenCleanup, gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))), gocron.NewTask(sched.cleanupTokens)})
	}

	for _, d := range defs {
		job, err := s.NewJob(d.def, d.task,
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to create %s job: %w", d.name, err)
		}
		sched.jobs[d.name] = job
	}

	return sched, nil
}

func (s *Scheduler) Start() {
	slog.Info("starting scheduler", "jobs", len(s.jobs))
	s.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	slog.Info("stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// NextRun reports when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	return job.NextRun()
}

// RunNow triggers the named job outside its schedule. The scheduler must be
// started.
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job.RunNow()
}

func (s *Scheduler) rollover(scope ledger.Scope) {
	start := time.Now()
	n, err := s.roller.Rollover(s.ctx, scope)
	if err != nil {
		slog.Error("scheduled rollover failed", "error", err, "scope", scope, "users", n)
		return
	}
	slog.Info("scheduled rollover done", "scope", scope, "users", n, "duration", time.Since(start))
}

func (s *Scheduler) cleanupTokens() {
	n, err := s.tokens.CleanupExpired(tokenRetention)
	if err != nil {
		slog.Error("token cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired tokens removed", "count", n)
	}
}
