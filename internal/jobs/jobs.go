// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type ConfirmTokenPurger interface {
	PurgeExpiredConfirmTokens(ctx context.Context, now time.Time) (int64, error)
}

type AILogPurger interface {
	PurgeAILogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type LimiterCleaner interface {
	Cleanup(maxIdle time.Duration) int
}

type Reindexer interface {
	ReindexAllFromPG(ctx context.Context) error
}

// Deps collects the job targets. Nil fields skip their job.
type Deps struct {
	ConfirmTokens ConfirmTokenPurger
	AILogs        AILogPurger
	AILogRetain   time.Duration
	Sessions      SessionPurger
	Limiter       LimiterCleaner
	Search        Reindexer
}

const (
	SpecConfirmTokens = "@daily"
	SpecAILogs        = "30 3 * * *"
	SpecSessions      = "@hourly"
	SpecLimiter       = "@hourly"
	SpecReindex       = "0 */6 * * *"

	jobTimeout     = 5 * time.Minute
	limiterMaxIdle = time.Hour
)

type Scheduler struct {
	cron *cron.Cron
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})))
	return &Scheduler{cron: c, deps: deps, now: time.Now}
}

// Register adds every configured job and returns how many were scheduled.
func (s *Scheduler) Register() (int, error) {
	jobs := s.jobs()
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.run)); err != nil {
			return 0, err
		}
	}
	return len(jobs), nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

func (s *Scheduler) jobs() []job {
	var out []job
	if s.deps.ConfirmTokens != nil {
		out = append(out, job{"purge_confirm_tokens", SpecConfirmTokens, s.purgeConfirmTokens})
	}
	if s.deps.AILogs != nil && s.deps.AILogRetain > 0 {
		out = append(out, job{"purge_ai_logs", SpecAILogs, s.purgeAILogs})
	}
	if s.deps.Sessions != nil {
		out = append(out, job{"purge_sessions", SpecSessions, s.purgeSessions})
	}
	if s.deps.Limiter != nil {
		out = append(out, job{"cleanup_rate_limiter", SpecLimiter, s.cleanupLimiter})
	}
	if s.deps.Search != nil {
		out = append(out, job{"search_reindex", SpecReindex, s.deps.Search.ReindexAllFromPG})
	}
	return out
}

func (s *Scheduler) wrap(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := s.now()
		if err := run(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("maintenance job failed")
			return
		}
		log.Debug().Str("job", name).Dur("took", s.now().Sub(start)).Msg("maintenance job done")
	}
}

func (s *Scheduler) purgeConfirmTokens(ctx context.Context) error {
	n, err := s.deps.ConfirmTokens.PurgeExpiredConfirmTokens(ctx, s.now().UTC())
	if err == nil && n > 0 {
		log.Info().Int64("count", n).Msg("purged expired email confirm tokens")
	}
	return err
}

func (s *Scheduler) purgeAILogs(ctx context.Context) error {
	n, err := s.deps.AILogs.PurgeAILogsBefore(ctx, s.now().UTC().Add(-s.deps.AILogRetain))
	if err == nil && n > 0 {
		log.Info().Int64("count", n).Msg("purged old ai logs")
	}
	return err
}

func (s *Scheduler) purgeSessions(ctx context.Context) error {
	_, err := s.deps.Sessions.PurgeExpiredSessions(ctx, s.now().UTC())
	return err
}

func (s *Scheduler) cleanupLimiter(context.Context) error {
	if n := s.deps.Limiter.Cleanup(limiterMaxIdle); n > 0 {
		log.Debug().Int("count", n).Msg("dropped idle rate limiters")
	}
	return nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
