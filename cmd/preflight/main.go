// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/hamed0406/formprobe/internal/config"
	"github.com/hamed0406/formprobe/internal/probe"
	"github.com/hamed0406/formprobe/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()

	if cfg.Slack.BotToken == "" {
		fail("SLACK_BOT_TOKEN is empty (no report can be sent).")
	}
	if !strings.HasPrefix(cfg.Slack.BotToken, "xoxb-") {
		warn("SLACK_BOT_TOKEN does not look like a bot token (xoxb-...); uploads need files:write.")
	}
	if cfg.Slack.ChannelID == "" {
		fail("SLACK_CHANNEL_ID is empty.")
	}
	ok("SLACK_CHANNEL_ID=" + cfg.Slack.ChannelID)

	if cfg.NotifyURL != "" {
		ok("NOTIFY_URL present (text mirror)")
	}

	if cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			fail("CHROME_EXECUTABLE not found: " + cfg.Browser.ExecPath)
		}
		ok("CHROME_EXECUTABLE=" + cfg.Browser.ExecPath)
	} else if path := findChrome(); path != "" {
		ok("chrome on PATH: " + path)
	} else {
		warn("no Chrome/Chromium on PATH and CHROME_EXECUTABLE unset; launch will fail.")
	}

	if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
		fail("SCREENSHOT_DIR not writable: " + err.Error())
	}
	ok("SCREENSHOT_DIR=" + cfg.ScreenshotDir)

	if err := scheduler.ValidateSchedule(cfg.Schedule); err != nil {
		fail(err.Error())
	}
	ok("PROBE_SCHEDULE=" + cfg.Schedule)

	if cfg.Location().String() != cfg.Timezone {
		warn("REPORT_TIMEZONE " + cfg.Timezone + " unknown; reports will use UTC.")
	}

	ok("fields checked: " + strings.Join(cfg.Target.Fields.Names(), ", "))

	dns := probe.CheckDNS(context.Background(), nil, probe.HostOf(cfg.Target.URL))
	if !dns.OK() {
		fail(fmt.Sprintf("target host %q: %s %s", dns.Host, dns.Class, dns.ResolverError))
	}
	ok(fmt.Sprintf("target host %s resolves (%d addresses)", dns.Host, len(dns.IPs)))

	ok("preflight passed")
}

func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
