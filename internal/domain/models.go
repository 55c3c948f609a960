package domain

import "time"

// Field is one required form input, located by a CSS selector inside the
// embedded form document.
type Field struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
}

// CheckSpec is the ordered list of fields a run must find. Order matters:
// failure details list missing names in this order.
type CheckSpec []Field

// Names returns the field names in declared order.
func (c CheckSpec) Names() []string {
	out := make([]string, 0, len(c))
	for _, f := range c {
		out = append(out, f.Name)
	}
	return out
}

// DefaultCheckSpec returns a fresh copy of the HubSpot "book a demo" fields.
func DefaultCheckSpec() CheckSpec {
	return CheckSpec{
		{Name: "email", Selector: `input[name="email"]`},
		{Name: "choose_your_erp", Selector: `select[name="choose_your_erp"]`},
		{Name: "message", Selector: `textarea[name="message"]`},
	}
}

// Target describes the page under test. It is static configuration.
type Target struct {
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	FrameSelector string    `json:"frame_selector"`
	Fields        CheckSpec `json:"fields"`
}

const (
	DefaultTargetName    = "Growfin Book a Demo Form"
	DefaultTargetURL     = "https://www.growfin.ai/book-a-demo"
	DefaultFrameSelector = "#hubSpotFormHere iframe.hs-form-iframe"
)

func DefaultTarget() Target {
	return Target{
		Name:          DefaultTargetName,
		URL:           DefaultTargetURL,
		FrameSelector: DefaultFrameSelector,
		Fields:        DefaultCheckSpec(),
	}
}

// ProbeResult is the outcome of a single run. Build it with NewProbeResult;
// it is not modified afterwards.
type ProbeResult struct {
	OK             bool      `json:"ok"`
	Detail         string    `json:"detail"`
	CheckedAt      time.Time `json:"checked_at"`
	TimestampLocal string    `json:"timestamp_local"`
}

// LocalTimeLayout matches the en-IN locale rendering: day and month are not
// padded, e.g. "5/1/2024, 8:34:05 am".
const LocalTimeLayout = "2/1/2006, 3:04:05 pm"

func NewProbeResult(ok bool, detail string, at time.Time, loc *time.Location) ProbeResult {
	if loc == nil {
		loc = time.UTC
	}
	return ProbeResult{
		OK:             ok,
		Detail:         detail,
		CheckedAt:      at.UTC(),
		TimestampLocal: at.In(loc).Format(LocalTimeLayout),
	}
}

func (r ProbeResult) Verdict() string {
	if r.OK {
		return "PASS"
	}
	return "FAIL"
}

func (r ProbeResult) Glyph() string {
	if r.OK {
		return "✅"
	}
	return "❌"
}
