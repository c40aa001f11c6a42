package connectors

import (
	"context"
	"fmt"
	"time"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

// SlackPoster is the subset of *slack.Client the connector uses.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackOption configures the Slack connector.
type SlackOption func(*Slack)

// WithSlackAPIURL points the Slack client at another API base URL. The URL
// must end with a slash.
func WithSlackAPIURL(url string) SlackOption {
	return func(s *Slack) { s.clientOpts = append(s.clientOpts, slacklib.OptionAPIURL(url)) }
}

// WithSlackBotToken sets a fallback bot token for workspaces whose
// connection carries none.
func WithSlackBotToken(token string) SlackOption {
	return func(s *Slack) { s.botToken = token }
}

// Slack posts channel notifications. It requires a connected workspace and
// delivers through the Slack Web API when a token is available.
type Slack struct {
	creds      gateway.CredentialSource
	botToken   string
	clientOpts []slacklib.Option
	newClient  func(token string) SlackPoster
}

func NewSlack(creds gateway.CredentialSource, opts ...SlackOption) *Slack {
	s := &Slack{creds: creds}
	for _, opt := range opts {
		opt(s)
	}
	s.newClient = func(token string) SlackPoster {
		return slacklib.New(token, s.clientOpts...)
	}
	return s
}

func (*Slack) ID() string        { return "slack" }
func (*Slack) Name() string      { return "Slack" }
func (*Slack) Namespace() string { return "slack" }

func (*Slack) Tools() []gateway.Tool {
	return []gateway.Tool{{
		ID:      "slack.notify_channel",
		Name:    "Post channel notification",
		Summary: "Posts templated message to a Slack channel.",
		Args:    map[string]string{"channel": "Target channel", "template": "Message template"},
	}}
}

func (s *Slack) Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	if toolID != "slack.notify_channel" {
		return nil, unknownTool("slack", toolID)
	}

	creds, err := requireConnection(ctx, s.creds, cc.WorkspaceID, "slack")
	if err != nil {
		return nil, err
	}

	channel := argString(args, "channel", "#ops")
	text := argString(args, "template", "Ops update")

	result := map[string]any{
		"status":      "sent",
		"channel":     channel,
		"template":    text,
		"sentAt":      time.Now().UTC().Format(time.RFC3339),
		"workspaceId": cc.WorkspaceID,
	}

	token := firstNonEmpty(creds["bot_token"], creds["access_token"], s.botToken)
	if token == "" {
		result["delivery"] = "simulated"
		return &domain.ToolResult{Result: result}, nil
	}

	channelID, ts, err := s.newClient(token).PostMessageContext(ctx, channel,
		slacklib.MsgOptionText(text, false),
		slacklib.MsgOptionBlocks(BuildNotificationBlocks(text, cc.ActorID)...),
	)
	if err != nil {
		return nil, fmt.Errorf("slack: post message: %w", err)
	}

	result["delivery"] = "slack"
	result["channelId"] = channelID
	result["ts"] = ts
	return &domain.ToolResult{Result: result}, nil
}

// BuildNotificationBlocks renders a notification as Block Kit blocks: the
// message as a markdown section plus a context line naming the actor.
func BuildNotificationBlocks(text, actorID string) []slacklib.Block {
	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil,
		nil,
	)
	if actorID == "" {
		return []slacklib.Block{section}
	}

	footer := slacklib.NewContextBlock("",
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("Sent by *%s* via opspilot", actorID), false, false),
	)
	return []slacklib.Block{section, footer}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
