package notify

import (
	"context"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

type textSender interface {
	Send(message string, params *types.Params) []error
}

// Shoutrrr forwards the text summary to any shoutrrr URL. It never attaches files.
type Shoutrrr struct {
	sender textSender
}

func NewShoutrrr(rawURL string) (*Shoutrrr, error) {
	sender, err := shoutrrr.CreateSender(rawURL)
	if err != nil {
		return nil, fmt.Errorf("creating shoutrrr sender: %w", err)
	}
	return &Shoutrrr{sender: sender}, nil
}

func (s *Shoutrrr) Notify(_ context.Context, msg Message) error {
	params := types.Params{}
	for _, e := range s.sender.Send(msg.Text, &params) {
		if e != nil {
			return fmt.Errorf("shoutrrr send: %w", e)
		}
	}
	return nil
}
