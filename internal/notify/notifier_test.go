package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/notify"
	"github.com/gosuda/opspilot/internal/store/memory"
)

// --- mocks ---

type toolCall struct {
	cc     domain.CapabilityContext
	toolID string
	args   map[string]any
}

type mockTools struct {
	mu       sync.Mutex
	calls    []toolCall
	execFunc func(toolID string) error
}

func (m *mockTools) Execute(_ context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, toolCall{cc: cc, toolID: toolID, args: args})
	m.mu.Unlock()

	if m.execFunc != nil {
		if err := m.execFunc(toolID); err != nil {
			return nil, err
		}
	}
	return &domain.ToolResult{Result: map[string]any{"status": "sent"}}, nil
}

func (m *mockTools) recorded() []toolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]toolCall(nil), m.calls...)
}

func conversionDrop(severity domain.Severity) *domain.Anomaly {
	return &domain.Anomaly{
		ID:          "anom-1",
		WorkspaceID: "ws-demo",
		MetricID:    "metric-conversion",
		Title:       "Conversion drop",
		Description: "Checkout conversion fell below baseline",
		Severity:    severity,
		Baseline:    0.034,
		Observed:    0.021,
	}
}

// --- Notify tests ---

func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("posts to the workspace channel", func(t *testing.T) {
		t.Parallel()

		tools := &mockTools{}
		reg := notify.NewRegistry("")
		reg.Register("ws-demo", "#ops")
		n := notify.New(tools, reg, memory.NewPubSub(), domain.SeverityHigh)

		err := n.Notify(t.Context(), conversionDrop(domain.SeverityHigh))
		require.NoError(t, err)

		calls := tools.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, notify.NotifyTool, calls[0].toolID)
		assert.Equal(t, "ws-demo", calls[0].cc.WorkspaceID)
		assert.Equal(t, notify.ActorID, calls[0].cc.ActorID)
		assert.Equal(t, "#ops", calls[0].args["channel"])
		assert.Equal(t,
			"[HIGH] Conversion drop: Checkout conversion fell below baseline (observed 0.021, baseline 0.034)",
			calls[0].args["template"])
	})

	t.Run("below threshold is skipped", func(t *testing.T) {
		t.Parallel()

		tools := &mockTools{}
		n := notify.New(tools, notify.NewRegistry("#ops"), memory.NewPubSub(), domain.SeverityHigh)

		err := n.Notify(t.Context(), conversionDrop(domain.SeverityMedium))
		require.NoError(t, err)
		assert.Empty(t, tools.recorded())
	})

	t.Run("no channel is skipped", func(t *testing.T) {
		t.Parallel()

		tools := &mockTools{}
		n := notify.New(tools, notify.NewRegistry(""), memory.NewPubSub(), domain.SeverityLow)

		err := n.Notify(t.Context(), conversionDrop(domain.SeverityHigh))
		require.NoError(t, err)
		assert.Empty(t, tools.recorded())
	})

	t.Run("delivery error is wrapped", func(t *testing.T) {
		t.Parallel()

		errNotConnected := errors.New("slack not connected")
		tools := &mockTools{execFunc: func(string) error { return errNotConnected }}
		n := notify.New(tools, notify.NewRegistry("#ops"), memory.NewPubSub(), domain.SeverityLow)

		err := n.Notify(t.Context(), conversionDrop(domain.SeverityHigh))
		require.Error(t, err)
		require.ErrorIs(t, err, errNotConnected)
		assert.Contains(t, err.Error(), "notify.Notifier.Notify")
	})
}

func TestFormatAlert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		anomaly *domain.Anomaly
		want    string
	}{
		{
			name:    "with description",
			anomaly: conversionDrop(domain.SeverityMedium),
			want:    "[MEDIUM] Conversion drop: Checkout conversion fell below baseline (observed 0.021, baseline 0.034)",
		},
		{
			name: "without description",
			anomaly: &domain.Anomaly{
				Title:    "MRR spike",
				Severity: domain.SeverityHigh,
				Baseline: 42000,
				Observed: 61000,
			},
			want: "[HIGH] MRR spike (observed 6.1e+04, baseline 4.2e+04)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, notify.FormatAlert(tc.anomaly))
		})
	}
}

// --- Run tests ---

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("relays detected anomalies only", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		tools := &mockTools{}
		n := notify.New(tools, notify.NewRegistry("#ops"), ps, domain.SeverityHigh)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- n.Run(ctx, []string{"ws-demo"}) }()

		// Publishing races the subscription, so keep emitting until one lands.
		require.Eventually(t, func() bool {
			bus.Emit(ctx, ps, domain.EventMetricUpdated, "ws-demo", map[string]string{"id": "metric-mrr"})
			bus.Emit(ctx, ps, domain.EventAnomalyDetected, "ws-demo", conversionDrop(domain.SeverityHigh))
			return len(tools.recorded()) > 0
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}

		for _, c := range tools.recorded() {
			assert.Equal(t, notify.NotifyTool, c.toolID)
			assert.Equal(t, "ws-demo", c.cc.WorkspaceID)
		}
	})

	t.Run("ignores other workspaces", func(t *testing.T) {
		t.Parallel()

		ps := memory.NewPubSub()
		tools := &mockTools{}
		n := notify.New(tools, notify.NewRegistry("#ops"), ps, domain.SeverityLow)

		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		go func() {
			for ctx.Err() == nil {
				other := conversionDrop(domain.SeverityHigh)
				other.WorkspaceID = "ws-other"
				bus.Emit(ctx, ps, domain.EventAnomalyDetected, "ws-other", other)
				time.Sleep(5 * time.Millisecond)
			}
		}()

		require.NoError(t, n.Run(ctx, []string{"ws-demo"}))
		assert.Empty(t, tools.recorded())
	})
}
