package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ndomo/agentline/internal/engine"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts events to a Slack channel via the Web API.
type Slack struct {
	client    slackClient
	channelID string
}

var _ engine.Notifier = (*Slack)(nil)

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, errors.New("notify: slack bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, errors.New("notify: slack channel is required")
	}
	n := &Slack{client: opts.Client, channelID: opts.ChannelID}
	if n.client == nil {
		n.client = slackapi.New(opts.BotToken)
	}
	return n, nil
}

func (n *Slack) Notify(ctx context.Context, ev engine.Event) error {
	att := slackapi.Attachment{
		Title:    ev.Title,
		Text:     ev.Body,
		Color:    severityColor(ev.Severity),
		Fallback: ev.Title,
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channelID, slackapi.MsgOptionAttachments(att))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
