package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Quiescence heuristic: at most idleMaxInflight requests for idleQuietPeriod.
const (
	idleMaxInflight = 2
	idleQuietPeriod = 500 * time.Millisecond
	idlePollEvery   = 50 * time.Millisecond
)

// idleTracker counts in-flight requests from CDP network events.
type idleTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	quietSince time.Time // zero while busy
	now        func() time.Time
}

func newIdleTracker() *idleTracker {
	t := &idleTracker{now: time.Now}
	t.reset()
	return t
}

func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[network.RequestID]struct{})
	t.quietSince = t.now()
}

func (t *idleTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.update(e.RequestID, true)
	case *network.EventLoadingFinished:
		t.update(e.RequestID, false)
	case *network.EventLoadingFailed:
		t.update(e.RequestID, false)
	}
}

func (t *idleTracker) update(id network.RequestID, started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if started {
		t.inflight[id] = struct{}{}
	} else {
		delete(t.inflight, id)
	}
	busy := len(t.inflight) > idleMaxInflight
	switch {
	case busy:
		t.quietSince = time.Time{}
	case t.quietSince.IsZero():
		t.quietSince = t.now()
	}
}

func (t *idleTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.quietSince.IsZero() && t.now().Sub(t.quietSince) >= idleQuietPeriod
}

func (t *idleTracker) wait(ctx context.Context) error {
	tick := time.NewTicker(idlePollEvery)
	defer tick.Stop()
	for {
		if t.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Open navigates to url and waits for network quiescence, all within timeout.
func (s *Session) Open(ctx context.Context, url string, timeout time.Duration) error {
	s.idle.reset()
	start := time.Now()

	err := s.run(ctx, timeout,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.ActionFunc(s.idle.wait),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s did not settle within %s", ErrNavigationTimeout, url, timeout)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	s.logger.Info("page_loaded",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
