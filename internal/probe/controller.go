package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/browser"
	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/domain"
	"github.com/hamed0406/formprobe/internal/notify"
)

// SuccessDetail is the detail line of a passing run.
const SuccessDetail = "All HubSpot fields present."

// reportTimeout bounds the screenshot and notification together.
const reportTimeout = 45 * time.Second

// Browser is the page driver a run needs. *browser.Session implements it.
type Browser interface {
	Open(ctx context.Context, url string, timeout time.Duration) error
	LocateFrame(ctx context.Context, selector string, timeout time.Duration) (browser.Frame, error)
	VerifyFieldsPresent(ctx context.Context, frame browser.Frame, fields domain.CheckSpec, timeout time.Duration) (browser.FieldReport, error)
	CaptureFullPage(ctx context.Context, path string) error
	Close() error
}

// Evidence hands out the artifact path for a run.
type Evidence interface {
	NextPath() string
}

var _ Browser = (*browser.Session)(nil)

type Controller struct {
	Target   domain.Target
	Timeouts config.Timeouts
	Browser  Browser
	Evidence Evidence
	Notifier notify.Notifier
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewController(cfg config.Config, b Browser, ev Evidence, n notify.Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		Target:   cfg.Target,
		Timeouts: cfg.Timeouts,
		Browser:  b,
		Evidence: ev,
		Notifier: n,
		Logger:   logger,
		Location: cfg.Location(),
		Now:      time.Now,
	}
}

// Run performs one probe: verify, screenshot, report, close. The terminal
// steps run whatever the verdict; their own failures are logged and never
// change the verdict.
func (c *Controller) Run(ctx context.Context) domain.ProbeResult {
	artifact := c.Evidence.NextPath()

	v := c.verify(ctx)
	ok := v.State == StatePass
	detail := SuccessDetail
	if !ok {
		detail = v.Err.Error()
	}

	// Shutdown must not swallow the artifact or the report.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if err := c.Browser.CaptureFullPage(rctx, artifact); err != nil {
		c.Logger.Warn("screenshot_error", zap.String("path", artifact), zap.Error(err))
	}

	result := domain.NewProbeResult(ok, detail, c.Now(), c.Location)

	msg := notify.Message{Text: Summary(c.Target.Name, result), Artifact: artifact, Failed: !ok}
	if err := c.Notifier.Notify(rctx, msg); err != nil {
		c.Logger.Error("notify_error", zap.Error(err))
	}

	if err := c.Browser.Close(); err != nil {
		c.Logger.Warn("browser_close_error", zap.Error(err))
	}

	c.Logger.Info("probe_verdict",
		zap.String("target", c.Target.URL),
		zap.Bool("ok", result.OK),
		zap.String("detail", result.Detail),
		zap.String("artifact", artifact),
	)
	return result
}

// verify walks Start → Navigated → FrameLocated → FieldsVerified. The first
// error ends the walk in Fail; nothing is retried.
func (c *Controller) verify(ctx context.Context) Verification {
	state := StateStart
	fail := func(err error) Verification {
		c.Logger.Info("probe_state", zap.Stringer("from", state), zap.Stringer("to", StateFail), zap.Error(err))
		return Verification{State: StateFail, Err: err}
	}
	advance := func(next State) {
		c.Logger.Info("probe_state", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	if err := c.Browser.Open(ctx, c.Target.URL, c.Timeouts.Navigation); err != nil {
		return fail(err)
	}
	advance(StateNavigated)

	frame, err := c.Browser.LocateFrame(ctx, c.Target.FrameSelector, c.Timeouts.Frame)
	if err != nil {
		return fail(err)
	}
	advance(StateFrameLocated)

	report, err := c.Browser.VerifyFieldsPresent(ctx, frame, c.Target.Fields, c.Timeouts.Field)
	if err != nil {
		return fail(err)
	}
	advance(StateFieldsVerified)

	// The re-check wins over the waits.
	if missing := inSpecOrder(c.Target.Fields, report.Missing); len(missing) > 0 {
		return fail(&MissingFieldsError{Names: missing})
	}
	if err := report.FirstWaitErr(); err != nil {
		return fail(err)
	}

	advance(StatePass)
	return Verification{State: StatePass}
}

// inSpecOrder filters spec names down to those listed in names.
func inSpecOrder(spec domain.CheckSpec, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	var out []string
	for _, f := range spec {
		if _, ok := set[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Launcher starts a fresh browser for one run.
type Launcher func(ctx context.Context) (Browser, error)

// ErrInfrastructure marks runs that never reached a verdict.
var ErrInfrastructure = errors.New("infrastructure failure")

// Execute launches a browser and runs one probe with it. A launch failure
// returns ErrInfrastructure and nothing is reported: there is no page to
// screenshot and no verdict to send.
func Execute(ctx context.Context, cfg config.Config, launch Launcher, ev Evidence, n notify.Notifier, logger *zap.Logger) (domain.ProbeResult, error) {
	b, err := launch(ctx)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	return NewController(cfg, b, ev, n, logger).Run(ctx), nil
}

// Summary renders the three-line report text.
func Summary(targetName string, r domain.ProbeResult) string {
	return fmt.Sprintf("%s %s Check – %s\nTime: %s\nDetails: %s",
		r.Glyph(), targetName, r.Verdict(), r.TimestampLocal, r.Detail)
}

// ExitCode maps a verdict onto the process status schedulers watch.
func ExitCode(r domain.ProbeResult) int {
	if r.OK {
		return 0
	}
	return 1
}
