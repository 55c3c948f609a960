package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	posts   []string
	uploads []slack.UploadFileV2Parameters
	body    string
	postErr error
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.posts = append(f.posts, channelID)
	return channelID, "1.0", nil
}

func (f *fakeSlack) UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	b, _ := io.ReadAll(params.Reader)
	f.body = string(b)
	f.uploads = append(f.uploads, params)
	return &slack.FileSummary{ID: "F1"}, nil
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book-demo-1.png")
	require.NoError(t, os.WriteFile(p, []byte("png-bytes"), 0o644))
	return p
}

func TestNewSlack_DisabledWithoutSettings(t *testing.T) {
	assert.Nil(t, NewSlack("", "C1"))
	assert.Nil(t, NewSlack("xoxb", ""))

	var s *Slack
	assert.Error(t, s.Notify(context.Background(), Message{Text: "x"}))
}

func TestSlack_PassSendsTextOnly(t *testing.T) {
	api := &fakeSlack{}
	s := &Slack{api: api, ChannelID: "C1"}

	err := s.Notify(context.Background(), Message{Text: "ok", Artifact: writeArtifact(t), Failed: false})

	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, api.posts)
	assert.Empty(t, api.uploads)
}

func TestSlack_FailAttachesArtifact(t *testing.T) {
	api := &fakeSlack{}
	s := &Slack{api: api, ChannelID: "C1", Title: "Growfin audit screenshot"}
	path := writeArtifact(t)

	err := s.Notify(context.Background(), Message{Text: "bad", Artifact: path, Failed: true})

	require.NoError(t, err)
	require.Len(t, api.posts, 1)
	require.Len(t, api.uploads, 1)
	up := api.uploads[0]
	assert.Equal(t, "C1", up.Channel)
	assert.Equal(t, "book-demo-1.png", up.Filename)
	assert.Equal(t, "Growfin audit screenshot", up.Title)
	assert.Equal(t, "Screenshot attached.", up.InitialComment)
	assert.Equal(t, len("png-bytes"), up.FileSize)
	assert.Equal(t, "png-bytes", api.body)
}

func TestSlack_SuccessUploadWhenAllowed(t *testing.T) {
	api := &fakeSlack{}
	s := &Slack{api: api, ChannelID: "C1", UploadOnSuccess: true}

	require.NoError(t, s.Notify(context.Background(), Message{Text: "ok", Artifact: writeArtifact(t)}))
	assert.Len(t, api.uploads, 1)
}

func TestSlack_MissingArtifactSkipsUpload(t *testing.T) {
	api := &fakeSlack{}
	s := &Slack{api: api, ChannelID: "C1"}

	err := s.Notify(context.Background(), Message{
		Text:     "bad",
		Artifact: filepath.Join(t.TempDir(), "gone.png"),
		Failed:   true,
	})

	require.NoError(t, err)
	assert.Len(t, api.posts, 1)
	assert.Empty(t, api.uploads)
}

func TestSlack_PostErrorStopsUpload(t *testing.T) {
	api := &fakeSlack{postErr: errors.New("channel_not_found")}
	s := &Slack{api: api, ChannelID: "C1"}

	err := s.Notify(context.Background(), Message{Text: "bad", Artifact: writeArtifact(t), Failed: true})

	require.Error(t, err)
	assert.Empty(t, api.uploads)
}

func TestSlack_PostsThroughWebAPI(t *testing.T) {
	var gotText, gotChannel string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = r.ParseForm()
		gotText = r.FormValue("text")
		gotChannel = r.FormValue("channel")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
	}))
	defer ts.Close()

	s := NewSlack("xoxb-test", "C1", slack.OptionAPIURL(ts.URL+"/"))
	require.NotNil(t, s)

	require.NoError(t, s.Notify(context.Background(), Message{Text: "✅ check – PASS"}))
	assert.Equal(t, "✅ check – PASS", gotText)
	assert.Equal(t, "C1", gotChannel)
}

func TestShouldAttach(t *testing.T) {
	assert.True(t, ShouldAttach(true, false))
	assert.True(t, ShouldAttach(true, true))
	assert.True(t, ShouldAttach(false, true))
	assert.False(t, ShouldAttach(false, false))
}
