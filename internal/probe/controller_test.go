package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/hamed0406/formprobe/internal/browser"
	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/domain"
	"github.com/hamed0406/formprobe/internal/evidence"
	"github.com/hamed0406/formprobe/internal/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type fakeBrowser struct {
	openErr   error
	frameErr  error
	verifyErr error
	report    browser.FieldReport

	mu         sync.Mutex
	calls      []string
	shots      []string
	shotCtxErr error
	closed     int
}

func (f *fakeBrowser) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBrowser) Open(ctx context.Context, url string, timeout time.Duration) error {
	f.record("open")
	return f.openErr
}

func (f *fakeBrowser) LocateFrame(ctx context.Context, selector string, timeout time.Duration) (browser.Frame, error) {
	f.record("frame")
	if f.frameErr != nil {
		return browser.Frame{}, f.frameErr
	}
	return browser.Frame{HostSelector: selector}, nil
}

func (f *fakeBrowser) VerifyFieldsPresent(ctx context.Context, frame browser.Frame, fields domain.CheckSpec, timeout time.Duration) (browser.FieldReport, error) {
	f.record("fields")
	return f.report, f.verifyErr
}

func (f *fakeBrowser) CaptureFullPage(ctx context.Context, path string) error {
	f.record("screenshot")
	f.mu.Lock()
	f.shots = append(f.shots, path)
	f.shotCtxErr = ctx.Err()
	f.mu.Unlock()
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (f *fakeBrowser) Close() error {
	f.record("close")
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	msgs    []notify.Message
	ctxErrs []error
	err     error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

// --- helpers ---

var fixedNow = time.Date(2026, 10, 18, 9, 4, 5, 0, time.UTC)

func newTestController(t *testing.T, b *fakeBrowser, n notify.Notifier) *Controller {
	t.Helper()
	store, err := evidence.New(t.TempDir(), "book-demo", "png")
	require.NoError(t, err)

	cfg := config.Config{
		Timezone: "Asia/Kolkata",
		Target:   domain.DefaultTarget(),
		Timeouts: config.Timeouts{Navigation: time.Second, Frame: time.Second, Field: time.Second},
	}
	c := NewController(cfg, b, store, n, zaptest.NewLogger(t))
	c.Now = func() time.Time { return fixedNow }
	return c
}

func waitsFor(spec domain.CheckSpec, failing map[string]error) []browser.FieldWait {
	out := make([]browser.FieldWait, 0, len(spec))
	for _, f := range spec {
		out = append(out, browser.FieldWait{Field: f, Err: failing[f.Name]})
	}
	return out
}

// --- tests ---

func TestController_AllFieldsPresentPasses(t *testing.T) {
	b := &fakeBrowser{report: browser.FieldReport{Waits: waitsFor(domain.DefaultCheckSpec(), nil)}}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.True(t, res.OK)
	assert.Equal(t, SuccessDetail, res.Detail)
	assert.Equal(t, 0, ExitCode(res))
	assert.Equal(t, []string{"open", "frame", "fields", "screenshot", "close"}, b.calls)

	require.Len(t, n.msgs, 1)
	assert.False(t, n.msgs[0].Failed)
	assert.Equal(t, b.shots[0], n.msgs[0].Artifact)
	assert.Equal(t,
		"✅ Growfin Book a Demo Form Check – PASS\nTime: 18/10/2026, 2:34:05 pm\nDetails: All HubSpot fields present.",
		n.msgs[0].Text)
}

func TestController_NavigationTimeoutSkipsFieldChecks(t *testing.T) {
	navErr := fmt.Errorf("%w: %s did not settle within 1s", browser.ErrNavigationTimeout, domain.DefaultTargetURL)
	b := &fakeBrowser{openErr: navErr}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Contains(t, res.Detail, "navigation timeout")
	assert.Equal(t, 1, ExitCode(res))
	assert.Equal(t, []string{"open", "screenshot", "close"}, b.calls)
	require.Len(t, n.msgs, 1)
	assert.True(t, n.msgs[0].Failed)
}

func TestController_FrameHostMissingSkipsFieldChecks(t *testing.T) {
	b := &fakeBrowser{frameErr: fmt.Errorf("%w: #hubSpotFormHere not visible", browser.ErrElementNotFound)}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Contains(t, res.Detail, "form frame not found")
	assert.NotContains(t, b.calls, "fields")
	require.Len(t, n.msgs, 1)
}

func TestController_FrameUnavailable(t *testing.T) {
	b := &fakeBrowser{frameErr: browser.ErrFrameUnavailable}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Equal(t, "cannot access form iframe", res.Detail)
}

func TestController_RecheckListsMissingInSpecOrder(t *testing.T) {
	spec := domain.DefaultCheckSpec()
	b := &fakeBrowser{report: browser.FieldReport{
		Waits: waitsFor(spec, map[string]error{
			"email":   errors.New(`field "email" not visible`),
			"message": errors.New(`field "message" not visible`),
		}),
		Missing: []string{"message", "email"},
	}}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Equal(t, "Missing form inputs: email, message", res.Detail)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0].Text, "❌ Growfin Book a Demo Form Check – FAIL")
	assert.Contains(t, n.msgs[0].Text, "Details: Missing form inputs: email, message")
}

func TestController_WaitFailureWithoutMissingStillFails(t *testing.T) {
	spec := domain.DefaultCheckSpec()
	b := &fakeBrowser{report: browser.FieldReport{
		Waits: waitsFor(spec, map[string]error{"choose_your_erp": errors.New(`field "choose_your_erp" not visible within 1s`)}),
	}}
	c := newTestController(t, b, &recordingNotifier{})

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Equal(t, `field "choose_your_erp" not visible within 1s`, res.Detail)
}

func TestController_RecheckErrorFails(t *testing.T) {
	b := &fakeBrowser{verifyErr: errors.New("re-check fields: target closed")}
	c := newTestController(t, b, &recordingNotifier{})

	res := c.Run(context.Background())

	assert.False(t, res.OK)
	assert.Equal(t, "re-check fields: target closed", res.Detail)
	assert.Equal(t, 1, b.closed)
}

func TestController_NotifyErrorDoesNotChangeVerdict(t *testing.T) {
	b := &fakeBrowser{report: browser.FieldReport{Waits: waitsFor(domain.DefaultCheckSpec(), nil)}}
	n := &recordingNotifier{err: errors.New("slack down")}
	c := newTestController(t, b, n)

	res := c.Run(context.Background())

	assert.True(t, res.OK)
	assert.Equal(t, 1, b.closed)
}

func TestController_TwoRunsAreIndependent(t *testing.T) {
	n := &recordingNotifier{}
	store, err := evidence.New(t.TempDir(), "", "")
	require.NoError(t, err)

	var artifacts []string
	for i := 0; i < 2; i++ {
		b := &fakeBrowser{report: browser.FieldReport{Waits: waitsFor(domain.DefaultCheckSpec(), nil)}}
		c := NewController(config.Config{Target: domain.DefaultTarget()}, b, store, n, nil)
		res := c.Run(context.Background())
		require.True(t, res.OK)
		require.Len(t, b.shots, 1)
		artifacts = append(artifacts, b.shots[0])

		_, err := os.Stat(b.shots[0])
		require.NoError(t, err)
	}

	assert.NotEqual(t, artifacts[0], artifacts[1])
	require.Len(t, n.msgs, 2)
}

func TestMissingFieldsError(t *testing.T) {
	var err error = &MissingFieldsError{Names: []string{"email", "message"}}
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.EqualError(t, err, "Missing form inputs: email, message")
}

func TestInSpecOrder(t *testing.T) {
	spec := domain.DefaultCheckSpec()
	assert.Nil(t, inSpecOrder(spec, nil))
	assert.Equal(t, []string{"email", "message"}, inSpecOrder(spec, []string{"message", "email", "unknown"}))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "frame_located", StateFrameLocated.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestExecute_LaunchFailureReportsNothing(t *testing.T) {
	n := &recordingNotifier{}
	store, err := evidence.New(t.TempDir(), "", "")
	require.NoError(t, err)

	launch := func(ctx context.Context) (Browser, error) {
		return nil, fmt.Errorf("%w: exec: \"google-chrome\": not found", browser.ErrLaunch)
	}
	_, err = Execute(context.Background(), config.Config{Target: domain.DefaultTarget()}, launch, store, n, nil)

	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.ErrorIs(t, err, browser.ErrLaunch)
	assert.Empty(t, n.msgs)
}

func TestExecute_RunsControllerWithLaunchedBrowser(t *testing.T) {
	n := &recordingNotifier{}
	store, err := evidence.New(t.TempDir(), "", "")
	require.NoError(t, err)

	b := &fakeBrowser{report: browser.FieldReport{Waits: waitsFor(domain.DefaultCheckSpec(), nil)}}
	launch := func(ctx context.Context) (Browser, error) { return b, nil }

	res, err := Execute(context.Background(), config.Config{Target: domain.DefaultTarget()}, launch, store, n, nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, b.closed)
	assert.Len(t, n.msgs, 1)
}

func TestController_ReportsAfterShutdownSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBrowser{openErr: fmt.Errorf("navigate: %w", context.Canceled)}
	n := &recordingNotifier{}
	c := newTestController(t, b, n)

	res := c.Run(ctx)

	assert.False(t, res.OK)
	require.Len(t, b.shots, 1)
	assert.NoError(t, b.shotCtxErr, "screenshot must not inherit the cancellation")
	require.Len(t, n.msgs, 1)
	assert.NoError(t, n.ctxErrs[0], "report must not inherit the cancellation")
	assert.Equal(t, 1, b.closed)
}
