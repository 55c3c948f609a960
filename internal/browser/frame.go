package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hamed0406/formprobe/internal/domain"
)

// Frame identifies an embedded document by the selector of its host element.
type Frame struct {
	HostSelector string
}

// FieldWait is the outcome of one field's visibility wait. Err is nil when
// the field became visible in time.
type FieldWait struct {
	Field domain.Field
	Err   error
}

// FieldReport holds every wait outcome plus the names the final existence
// re-check could not find, in CheckSpec order.
type FieldReport struct {
	Waits   []FieldWait
	Missing []string
}

// FirstWaitErr returns the first failed wait in CheckSpec order.
func (r FieldReport) FirstWaitErr() error {
	for _, w := range r.Waits {
		if w.Err != nil {
			return w.Err
		}
	}
	return nil
}

const fieldPollEvery = 100 * time.Millisecond

// fieldVisibleJS reports whether sel matches a rendered, non-hidden element
// inside the document hosted by frameSel.
const fieldVisibleJS = `function(frameSel, sel) {
	const host = document.querySelector(frameSel);
	const doc = host && host.contentDocument;
	if (!doc) return false;
	const el = doc.querySelector(sel);
	if (!el) return false;
	const style = doc.defaultView.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	return style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0;
}`

// LocateFrame waits for the host element to be visible, then checks that
// its nested document can be reached.
func (s *Session) LocateFrame(ctx context.Context, selector string, timeout time.Duration) (Frame, error) {
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Frame{}, fmt.Errorf("%w: %s not visible within %s", ErrElementNotFound, selector, timeout)
		}
		return Frame{}, fmt.Errorf("wait for %s: %w", selector, err)
	}

	sel, _ := json.Marshal(selector)
	expr := fmt.Sprintf(`(function(sel) {
		const host = document.querySelector(sel);
		return !!(host && host.contentDocument);
	})(%s)`, sel)

	var reachable bool
	if err := s.run(ctx, 0, chromedp.Evaluate(expr, &reachable)); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}
	if !reachable {
		return Frame{}, ErrFrameUnavailable
	}

	s.logger.Info("frame_located", zap.String("selector", selector))
	return Frame{HostSelector: selector}, nil
}

// VerifyFieldsPresent runs one bounded visibility wait per field. The waits
// are independent: a timeout on one does not stop the others. After all of
// them settle, a synchronous existence check runs against the frame's
// current document; its Missing list is the authoritative answer.
func (s *Session) VerifyFieldsPresent(ctx context.Context, frame Frame, fields domain.CheckSpec, timeout time.Duration) (FieldReport, error) {
	waits := awaitAll(fields, func(f domain.Field) error {
		return s.waitFieldVisible(ctx, frame, f, timeout)
	})

	missing, err := s.missingFields(ctx, frame, fields)
	if err != nil {
		return FieldReport{Waits: waits}, err
	}
	return FieldReport{Waits: waits, Missing: missing}, nil
}

// awaitAll runs wait once per field in its own goroutine and blocks until
// every one has returned. Each goroutine writes only its own slot.
func awaitAll(fields domain.CheckSpec, wait func(domain.Field) error) []FieldWait {
	waits := make([]FieldWait, len(fields))
	var wg sync.WaitGroup
	for i, f := range fields {
		wg.Add(1)
		go func() {
			defer wg.Done()
			waits[i] = FieldWait{Field: f, Err: wait(f)}
		}()
	}
	wg.Wait()
	return waits
}

func (s *Session) waitFieldVisible(ctx context.Context, frame Frame, f domain.Field, timeout time.Duration) error {
	var visible bool
	err := s.run(ctx, timeout+time.Second,
		chromedp.PollFunction(fieldVisibleJS, &visible,
			chromedp.WithPollingArgs(frame.HostSelector, f.Selector),
			chromedp.WithPollingInterval(fieldPollEvery),
			chromedp.WithPollingTimeout(timeout),
		),
	)
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("field %q (%s) not visible within %s", f.Name, f.Selector, timeout)
		}
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	return nil
}

func (s *Session) missingFields(ctx context.Context, frame Frame, fields domain.CheckSpec) ([]string, error) {
	host, _ := json.Marshal(frame.HostSelector)
	spec, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	expr := fmt.Sprintf(`(function(frameSel, fields) {
		const host = document.querySelector(frameSel);
		const doc = host && host.contentDocument;
		if (!doc) return fields.map(f => f.name);
		return fields.filter(f => !doc.querySelector(f.selector)).map(f => f.name);
	})(%s, %s)`, host, spec)

	var missing []string
	if err := s.run(ctx, 0, chromedp.Evaluate(expr, &missing)); err != nil {
		return nil, fmt.Errorf("re-check fields: %w", err)
	}
	return missing, nil
}
