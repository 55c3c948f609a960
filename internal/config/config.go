package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/formprobe/internal/domain"
)

type Config struct {
	LogDir        string // logs directory
	ScreenshotDir string // evidence directory, relative to the working dir
	Schedule      string // cron spec used by cmd/probed
	RunOnStart    bool   // cmd/probed probes once before the first tick
	Timezone      string // IANA zone for the human timestamp in reports

	Target   domain.Target
	Browser  Browser
	Slack    Slack
	Timeouts Timeouts

	NotifyURL string // optional shoutrrr URL, text only
}

type Browser struct {
	ExecPath  string // empty means let chromedp find Chrome
	Headless  bool
	UserAgent string
	Width     int
	Height    int
}

type Slack struct {
	BotToken        string
	ChannelID       string
	UploadOnSuccess bool
}

type Timeouts struct {
	Navigation time.Duration
	Frame      time.Duration
	Field      time.Duration
}

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func FromEnv() Config {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	shots := os.Getenv("SCREENSHOT_DIR")
	if shots == "" {
		shots = "screens"
	}

	schedule := strings.TrimSpace(os.Getenv("PROBE_SCHEDULE"))
	if schedule == "" {
		schedule = "*/30 * * * *"
	}

	tz := os.Getenv("REPORT_TIMEZONE")
	if tz == "" {
		tz = "Asia/Kolkata"
	}

	target := domain.DefaultTarget()
	if v := strings.TrimSpace(os.Getenv("TARGET_URL")); v != "" {
		target.URL = v
	}

	return Config{
		LogDir:        logDir,
		ScreenshotDir: shots,
		Schedule:      schedule,
		RunOnStart:    envBool("RUN_ON_START", true),
		Timezone:      tz,
		Target:        target,
		Browser: Browser{
			ExecPath:  strings.TrimSpace(os.Getenv("CHROME_EXECUTABLE")),
			Headless:  true,
			UserAgent: DefaultUserAgent,
			Width:     1366,
			Height:    900,
		},
		Slack: Slack{
			BotToken:        strings.TrimSpace(os.Getenv("SLACK_BOT_TOKEN")),
			ChannelID:       strings.TrimSpace(os.Getenv("SLACK_CHANNEL_ID")),
			UploadOnSuccess: envBool("UPLOAD_SCREENSHOT_ON_SUCCESS", false),
		},
		Timeouts: Timeouts{
			Navigation: envMillis("NAV_TIMEOUT_MS", 30*time.Second),
			Frame:      envMillis("FRAME_TIMEOUT_MS", 15*time.Second),
			Field:      envMillis("FIELD_TIMEOUT_MS", 10*time.Second),
		},
		NotifyURL: strings.TrimSpace(os.Getenv("NOTIFY_URL")),
	}
}

// Validate reports settings the probe cannot run without.
func (c Config) Validate() error {
	var err error
	if c.Slack.BotToken == "" {
		err = multierr.Append(err, errors.New("SLACK_BOT_TOKEN is empty"))
	}
	if c.Slack.ChannelID == "" {
		err = multierr.Append(err, errors.New("SLACK_CHANNEL_ID is empty"))
	}
	if c.Target.URL == "" {
		err = multierr.Append(err, errors.New("target URL is empty"))
	}
	return err
}

// RunTimeout bounds a whole scheduled run: every phase budget plus slack
// for launch, screenshot and upload.
func (c Config) RunTimeout() time.Duration {
	return c.Timeouts.Navigation + c.Timeouts.Frame + c.Timeouts.Field + 30*time.Second
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
