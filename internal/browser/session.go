package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/config"
)

// Session owns one Chrome process and a single tab. It is not reused across runs.
type Session struct {
	ctx         context.Context // tab context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	idle        *idleTracker

	closeOnce sync.Once
}

// AllocatorOptions translates browser config into chromedp exec allocator options.
func AllocatorOptions(cfg config.Browser) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Launch starts Chrome and opens the tab. Errors wrap ErrLaunch.
func Launch(ctx context.Context, cfg config.Browser, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// The browser outlives ctx once started; only Close tears it down.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(cfg)...)
	stopLaunch := context.AfterFunc(ctx, allocCancel)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	// The first Run starts the browser process.
	err := chromedp.Run(tabCtx)
	stopLaunch()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s := &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		idle:        newIdleTracker(),
	}
	chromedp.ListenTarget(tabCtx, s.idle.handle)

	logger.Info("browser_launched",
		zap.Bool("headless", cfg.Headless),
		zap.String("exec_path", cfg.ExecPath),
	)
	return s, nil
}

// run executes actions on the tab, bounded by timeout (if > 0) and by ctx.
// Derived contexts never close the tab; only Close does.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

const screenshotTimeout = 20 * time.Second

// CaptureFullPage writes a PNG of the whole scrollable page to path.
func (s *Session) CaptureFullPage(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, screenshotTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.logger.Info("screenshot_saved", zap.String("path", path), zap.Int("bytes", len(buf)))
	return nil
}

// Close shuts the tab and the browser. Only the first call does anything.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
		s.logger.Info("browser_closed")
	})
	return err
}
