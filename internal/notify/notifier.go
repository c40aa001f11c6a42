// Package notify posts anomaly alerts to a workspace's Slack channel through
// the tool gateway.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
)

const (
	// NotifyTool is the gateway tool alerts are delivered with.
	NotifyTool = "slack.notify_channel"
	// ActorID is recorded as the actor on alert deliveries.
	ActorID = "opspilot-alerts"
)

// ToolExecutor runs a gateway tool.
type ToolExecutor interface {
	Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error)
}

// ChannelResolver finds the alert channel for a workspace.
type ChannelResolver interface {
	Get(workspaceID string) (string, bool)
}

// Notifier relays anomalies from the event bus to chat.
type Notifier struct {
	tools       ToolExecutor
	channels    ChannelResolver
	sub         bus.Subscriber
	minSeverity domain.Severity
}

// New creates a Notifier. Anomalies below minSeverity are not posted.
func New(tools ToolExecutor, channels ChannelResolver, sub bus.Subscriber, minSeverity domain.Severity) *Notifier {
	return &Notifier{
		tools:       tools,
		channels:    channels,
		sub:         sub,
		minSeverity: minSeverity,
	}
}

// Notify posts one anomaly. Anomalies below the threshold, and workspaces
// without a channel, are skipped with a log line.
func (n *Notifier) Notify(ctx context.Context, anomaly *domain.Anomaly) error {
	if severityRank(anomaly.Severity) < severityRank(n.minSeverity) {
		return nil
	}

	channel, ok := n.channels.Get(anomaly.WorkspaceID)
	if !ok {
		log.Info().Str("workspace_id", anomaly.WorkspaceID).Str("anomaly_id", anomaly.ID).
			Msg("notify.Notifier.Notify: no alert channel, skipping")
		return nil
	}

	cc := domain.CapabilityContext{WorkspaceID: anomaly.WorkspaceID, ActorID: ActorID}
	_, err := n.tools.Execute(ctx, cc, NotifyTool, map[string]any{
		"channel":  channel,
		"template": FormatAlert(anomaly),
	})
	if err != nil {
		return fmt.Errorf("notify.Notifier.Notify: %w", err)
	}
	return nil
}

// Run subscribes to each workspace's events and posts detected anomalies
// until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, workspaceIDs []string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	for _, ws := range workspaceIDs {
		events, cancel, err := n.sub.Subscribe(gctx, bus.WorkspaceChannel(ws))
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("notify.Notifier.Run: subscribe %s: %w", ws, err)
		}

		g.Go(func() error {
			defer cancel()
			for {
				select {
				case <-gctx.Done():
					return nil
				case payload, ok := <-events:
					if !ok {
						return nil
					}
					n.handle(gctx, payload)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("notify.Notifier.Run: %w", err)
	}
	return nil
}

func (n *Notifier) handle(ctx context.Context, payload []byte) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Warn().Err(err).Msg("notify.Notifier: malformed event")
		return
	}
	if env.Type != domain.EventAnomalyDetected {
		return
	}

	var anomaly domain.Anomaly
	if err := json.Unmarshal(env.Data, &anomaly); err != nil {
		log.Warn().Err(err).Msg("notify.Notifier: malformed anomaly")
		return
	}

	if err := n.Notify(ctx, &anomaly); err != nil {
		log.Warn().Err(err).Str("workspace_id", anomaly.WorkspaceID).Str("anomaly_id", anomaly.ID).
			Msg("notify.Notifier: alert not delivered")
	}
}

// FormatAlert renders the one-line alert text for an anomaly.
func FormatAlert(a *domain.Anomaly) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", strings.ToUpper(string(a.Severity)), a.Title)
	if a.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(a.Description)
	}
	fmt.Fprintf(&sb, " (observed %.4g, baseline %.4g)", a.Observed, a.Baseline)
	return sb.String()
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityLow:
		return 1
	case domain.SeverityMedium:
		return 2
	case domain.SeverityHigh:
		return 3
	default:
		return 0
	}
}
