package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Message is one run report: the text summary plus the run's artifact.
// Whether the artifact is actually uploaded is each notifier's policy.
type Message struct {
	Text     string
	Artifact string
	Failed   bool
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ShouldAttach is the evidence upload policy: always on failure, on success
// only when explicitly allowed.
func ShouldAttach(failed, uploadOnSuccess bool) bool {
	return failed || uploadOnSuccess
}

// Multi fans a message out to every notifier and keeps going past failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, msg))
	}
	return err
}
