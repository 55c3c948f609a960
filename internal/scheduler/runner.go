package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/domain"
)

// ProbeFunc performs one complete, independent probe run.
type ProbeFunc func(ctx context.Context) (domain.ProbeResult, error)

// Runner fires ProbeFunc on a cron schedule. Each tick is a separate run
// with nothing shared between them; a tick that arrives while the previous
// run is still going is skipped.
type Runner struct {
	Logger     *zap.Logger
	Probe      ProbeFunc
	Schedule   string
	Location   *time.Location
	Timeout    time.Duration
	RunOnStart bool

	mu   sync.Mutex
	runs int
	last domain.ProbeResult
}

func NewRunner(logger *zap.Logger, probe ProbeFunc, schedule string, loc *time.Location, timeout time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		Logger:   logger,
		Probe:    probe,
		Schedule: schedule,
		Location: loc,
		Timeout:  timeout,
	}
}

// ValidateSchedule parses a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Run blocks until ctx is cancelled, then waits for an in-flight run.
func (r *Runner) Run(ctx context.Context) error {
	if err := ValidateSchedule(r.Schedule); err != nil {
		return err
	}

	cl := cronLogger{r.Logger.Sugar()}
	c := cron.New(
		cron.WithLocation(r.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(r.Schedule, func() { r.runOnce(ctx) }); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	if r.RunOnStart {
		r.runOnce(ctx)
	}

	c.Start()
	r.Logger.Info("runner_started", zap.String("schedule", r.Schedule), zap.String("tz", r.Location.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	last := r.Last()
	r.Logger.Info("runner_stopped",
		zap.Int("runs", r.Runs()),
		zap.Bool("last_ok", last.OK),
		zap.String("last_detail", last.Detail),
	)
	return nil
}

func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res, err := r.Probe(cctx)

	r.mu.Lock()
	r.runs++
	if err == nil {
		r.last = res
	}
	r.mu.Unlock()

	if err != nil {
		r.Logger.Error("runner_probe_error", zap.Error(err))
		return
	}
	r.Logger.Info("runner_probe_done",
		zap.Bool("ok", res.OK),
		zap.String("detail", res.Detail),
		zap.Time("checked_at", res.CheckedAt),
	)
}

// Runs counts attempted runs, including ones that failed to start.
func (r *Runner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Last is the most recent run that produced a verdict.
func (r *Runner) Last() domain.ProbeResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// cronLogger routes robfig/cron's logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
