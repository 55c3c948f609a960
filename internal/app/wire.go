package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/browser"
	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/domain"
	"github.com/hamed0406/formprobe/internal/evidence"
	"github.com/hamed0406/formprobe/internal/notify"
	"github.com/hamed0406/formprobe/internal/probe"
)

// Notifier builds the Slack notifier plus the optional shoutrrr mirror.
func Notifier(cfg config.Config, logger *zap.Logger) (notify.Notifier, error) {
	var out notify.Multi

	if s := notify.NewSlack(cfg.Slack.BotToken, cfg.Slack.ChannelID); s != nil {
		s.UploadOnSuccess = cfg.Slack.UploadOnSuccess
		s.Logger = logger.Named("slack")
		s.Title = cfg.Target.Name + " screenshot"
		out = append(out, s)
	}
	if cfg.NotifyURL != "" {
		sh, err := notify.NewShoutrrr(cfg.NotifyURL)
		if err != nil {
			return nil, fmt.Errorf("NOTIFY_URL: %w", err)
		}
		out = append(out, sh)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no notifier configured")
	}
	return out, nil
}

// Launcher starts a fresh Chrome session per call.
func Launcher(cfg config.Config, logger *zap.Logger) probe.Launcher {
	return func(ctx context.Context) (probe.Browser, error) {
		s, err := browser.Launch(ctx, cfg.Browser, logger.Named("browser"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Deps is everything a run needs besides the browser.
type Deps struct {
	Evidence *evidence.Store
	Notifier notify.Notifier
	Launch   probe.Launcher
}

func Build(cfg config.Config, logger *zap.Logger) (Deps, error) {
	store, err := evidence.New(cfg.ScreenshotDir, "", "")
	if err != nil {
		return Deps{}, err
	}
	n, err := Notifier(cfg, logger)
	if err != nil {
		return Deps{}, err
	}
	return Deps{Evidence: store, Notifier: n, Launch: Launcher(cfg, logger)}, nil
}

// RunOnce is one complete probe: fresh browser, verdict, report.
func (d Deps) RunOnce(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.ProbeResult, error) {
	return probe.Execute(ctx, cfg, d.Launch, d.Evidence, d.Notifier, logger)
}
