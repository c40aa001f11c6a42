package agent

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/metrics"
)

type turnState int

const (
	stateInit turnState = iota
	statePlanEmitted
	stateInsightsEmitted
	stateToolsRunning
	stateSchemaEmitted
	stateFinal
	stateDone
)

func (s turnState) String() string {
	switch s {
	case stateInit:
		return "init"
	case statePlanEmitted:
		return "plan_emitted"
	case stateInsightsEmitted:
		return "insights_emitted"
	case stateToolsRunning:
		return "tools_running"
	case stateSchemaEmitted:
		return "schema_emitted"
	case stateFinal:
		return "final"
	default:
		return "done"
	}
}

// Turn is an open chat turn. It is a single-consumer state machine: call Next
// until it reports false, or range over Events. Not safe for concurrent use.
//
// Each step runs on a context detached from the caller's cancellation, so a
// step that has started always completes. Cancellation is observed between
// steps. Steps have no timeout of their own; a hung tool hangs the turn.
type Turn struct {
	o       *Orchestrator
	req     ChatRequest
	session *domain.Session
	agent   *domain.Agent
	started time.Time

	state       turnState
	queue       []ChatStreamEvent
	plan        *domain.Plan
	insights    []*domain.Insight
	tools       []string
	toolIdx     int
	toolStarted bool
	schema      *domain.UISchema
}

func newTurn(o *Orchestrator, req ChatRequest, session *domain.Session, agent *domain.Agent) *Turn {
	tools := agent.ToolsWhitelist
	if len(tools) > maxToolsPerTurn {
		tools = tools[:maxToolsPerTurn]
	}
	return &Turn{
		o:       o,
		req:     req,
		session: session,
		agent:   agent,
		started: time.Now(),
		tools:   tools,
	}
}

// Next advances the turn by one event. It returns false once the turn is
// over, or when ctx is already cancelled (the turn then stays resumable and
// Close decides what to persist).
func (t *Turn) Next(ctx context.Context) (ChatStreamEvent, bool) {
	for {
		if len(t.queue) > 0 {
			ev := t.queue[0]
			t.queue = t.queue[1:]
			return ev, true
		}
		if t.state == stateFinal || t.state == stateDone {
			t.state = stateDone
			return ChatStreamEvent{}, false
		}
		if ctx.Err() != nil {
			return ChatStreamEvent{}, false
		}

		t.step(context.WithoutCancel(ctx))
	}
}

// Events ranges over the remaining events. Breaking out of the loop, or
// cancelling ctx, abandons the turn and closes it.
func (t *Turn) Events(ctx context.Context) iter.Seq[ChatStreamEvent] {
	return func(yield func(ChatStreamEvent) bool) {
		defer t.Close(context.WithoutCancel(ctx))

		for {
			ev, ok := t.Next(ctx)
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// Close finishes an abandoned turn. When the orchestrator persists on
// abandon, the assistant message is stored with whatever was gathered so
// far. Close is idempotent and a no-op on finished turns.
func (t *Turn) Close(ctx context.Context) {
	if t.state == stateDone || t.state == stateFinal {
		t.state = stateDone
		return
	}

	abandonedAt := t.state
	t.state = stateDone
	t.queue = nil
	t.record(metrics.OutcomeAbandoned)

	if !t.o.opts.PersistOnAbandon {
		return
	}

	goal := "Help " + t.session.Title
	if t.plan != nil {
		goal = t.plan.Goal
	}
	summary := composeSummary(goal, t.insights, nil)
	msg := t.assistantMessage(summary, []domain.RemediationSuggestion{})
	msg.Metadata["abandonedAt"] = abandonedAt.String()

	if err := t.o.sessions.AppendMessage(ctx, msg); err != nil {
		log.Error().Err(err).Str("session_id", t.session.ID).Msg("agent.Turn.Close: persist partial turn")
	}
}

// step runs exactly one transition and queues the events it produces.
func (t *Turn) step(ctx context.Context) {
	switch t.state {
	case stateInit:
		t.plan = t.o.planner.CreatePlan(ctx, t.session, t.agent, t.req.Message)
		t.state = statePlanEmitted
		t.emit(EventPlan, t.plan)

	case statePlanEmitted:
		insights, err := t.o.insights.Generate(ctx, t.req.WorkspaceID)
		if err != nil {
			log.Warn().Err(err).Str("workspace_id", t.req.WorkspaceID).Msg("agent.Turn: insights unavailable")
			insights = nil
		}
		t.insights = insights
		t.state = stateInsightsEmitted
		for _, in := range insights {
			t.emit(EventInsight, in)
		}

	case stateInsightsEmitted:
		t.state = stateToolsRunning

	case stateToolsRunning:
		if t.toolIdx < len(t.tools) {
			t.runTool(ctx)
			return
		}
		schema, err := t.o.designer.Regenerate(ctx, t.req.WorkspaceID, domain.DashboardContext)
		if err != nil {
			t.fail(fmt.Errorf("generate ui schema: %w", err))
			return
		}
		t.schema = schema
		t.state = stateSchemaEmitted
		t.emit(EventUISchema, schema)

	case stateSchemaEmitted:
		t.finish(ctx)

	case stateFinal, stateDone:
	}
}

// runTool emits started on the first call for a tool and the outcome on the
// second, so the started event reaches the consumer before execution.
func (t *Turn) runTool(ctx context.Context) {
	toolID := t.tools[t.toolIdx]

	if !t.toolStarted {
		t.toolStarted = true
		t.emit(EventToolCall, ToolCallUpdate{ToolID: toolID, Status: ToolCallStarted})
		return
	}

	t.toolStarted = false
	t.toolIdx++

	cc := domain.CapabilityContext{WorkspaceID: t.req.WorkspaceID, ActorID: t.req.ActorID}
	res, err := t.o.tools.Execute(ctx, cc, toolID, map[string]any{"range": "7d"})
	if err != nil {
		t.emit(EventToolCall, ToolCallUpdate{ToolID: toolID, Status: ToolCallError, Error: err.Error()})
		return
	}

	update := ToolCallUpdate{ToolID: toolID, Status: ToolCallFinished}
	if res != nil {
		update.Result = res.Result
		update.Metadata = res.Metadata
	}
	t.emit(EventToolCall, update)
}

func (t *Turn) finish(ctx context.Context) {
	anomalies, err := t.o.anomalies.Anomalies(ctx, t.req.WorkspaceID)
	if err != nil {
		t.fail(fmt.Errorf("list anomalies: %w", err))
		return
	}

	suggestions, err := t.o.advisor.Suggest(ctx, t.req.WorkspaceID, anomalies)
	if err != nil {
		t.fail(fmt.Errorf("suggest remediation: %w", err))
		return
	}
	if suggestions == nil {
		suggestions = []domain.RemediationSuggestion{}
	}

	summary := composeSummary(t.plan.Goal, t.insights, suggestions)

	err = t.o.sessions.AppendMessage(ctx, t.assistantMessage(summary, suggestions))
	if err != nil {
		t.fail(fmt.Errorf("append assistant message: %w", err))
		return
	}

	t.state = stateFinal
	t.record(metrics.OutcomeCompleted)
	bus.Emit(ctx, t.o.pubsub, domain.EventChatTurnCompleted, t.req.WorkspaceID, map[string]string{
		"sessionId": t.session.ID,
		"summary":   summary,
	})
	t.emit(EventFinal, FinalPayload{Message: summary})
}

// fail ends the turn with a single error event. Nothing further is persisted.
func (t *Turn) fail(err error) {
	log.Error().Err(err).Str("session_id", t.session.ID).Str("state", t.state.String()).Msg("agent.Turn: turn aborted")
	t.state = stateFinal
	t.record(metrics.OutcomeFailed)
	t.emit(EventError, ErrorPayload{Message: err.Error()})
}

func (t *Turn) emit(typ EventType, data any) {
	t.queue = append(t.queue, ChatStreamEvent{Type: typ, Data: data})
}

func (t *Turn) record(outcome string) {
	metrics.ChatTurns.WithLabelValues(outcome).Inc()
	metrics.ChatTurnDuration.Observe(time.Since(t.started).Seconds())
}

func (t *Turn) assistantMessage(summary string, suggestions []domain.RemediationSuggestion) *domain.Message {
	msg := domain.NewMessage(t.session.ID, domain.RoleAssistant, summary)
	if t.plan != nil {
		msg.Blocks = append(msg.Blocks, domain.Block{Type: "plan", Title: "Plan", Data: t.plan})
	}
	if t.schema != nil {
		msg.Blocks = append(msg.Blocks, domain.Block{Type: "ui_schema", Title: "Updated Layout", Data: t.schema.Layout})
	}
	msg.Metadata = map[string]any{"remediationSuggestions": suggestions}
	return msg
}

// composeSummary renders the three-line markdown summary of a turn.
func composeSummary(goal string, insights []*domain.Insight, suggestions []domain.RemediationSuggestion) string {
	texts := make([]string, 0, 2)
	for _, in := range insights[:min(len(insights), 2)] {
		texts = append(texts, in.Text)
	}
	insightLine := strings.Join(texts, " · ")
	if insightLine == "" {
		insightLine = "No new insights"
	}

	titles := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		titles = append(titles, s.Title)
	}
	nextLine := strings.Join(titles, ", ")
	if nextLine == "" {
		nextLine = "Monitor metrics."
	}

	return "**Plan**: " + goal + "\n**Insights**: " + insightLine + "\n**Next**: " + nextLine
}
