package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// slackAPI is the part of *slack.Client the notifier uses.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

type Slack struct {
	api             slackAPI
	ChannelID       string
	UploadOnSuccess bool
	Title           string // upload title
	Logger          *zap.Logger
}

// NewSlack returns nil when the token or channel is missing.
func NewSlack(token, channelID string, opts ...slack.Option) *Slack {
	if token == "" || channelID == "" {
		return nil
	}
	return &Slack{
		api:       slack.New(token, opts...),
		ChannelID: channelID,
		Title:     "Form check screenshot",
		Logger:    zap.NewNop(),
	}
}

// Notify posts the text, then uploads the artifact when the policy allows it
// and the file is on disk. A missing file is skipped, not an error.
func (s *Slack) Notify(ctx context.Context, msg Message) error {
	if s == nil || s.api == nil {
		return errors.New("slack disabled")
	}
	if _, _, err := s.api.PostMessageContext(ctx, s.ChannelID, slack.MsgOptionText(msg.Text, false)); err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}

	if msg.Artifact == "" || !ShouldAttach(msg.Failed, s.UploadOnSuccess) {
		return nil
	}

	f, err := os.Open(msg.Artifact)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger().Warn("notify_upload_skipped",
			zap.String("artifact", msg.Artifact),
			zap.String("reason", "file missing"),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	_, err = s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:        s.ChannelID,
		Reader:         f,
		FileSize:       int(info.Size()),
		Filename:       filepath.Base(msg.Artifact),
		Title:          s.Title,
		InitialComment: "Screenshot attached.",
	})
	if err != nil {
		return fmt.Errorf("slack upload: %w", err)
	}
	return nil
}

func (s *Slack) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
