package browser

import "errors"

var (
	// ErrLaunch means no browser is available; no verdict can be produced.
	ErrLaunch = errors.New("browser launch failed")

	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrElementNotFound   = errors.New("form frame not found")
	ErrFrameUnavailable  = errors.New("cannot access form iframe")
)
