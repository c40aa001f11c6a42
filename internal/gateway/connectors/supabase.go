package connectors

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

// Supabase returns synthetic product analytics.
type Supabase struct{}

func NewSupabase() *Supabase { return &Supabase{} }

func (*Supabase) ID() string        { return "supabase" }
func (*Supabase) Name() string      { return "Supabase Analytics" }
func (*Supabase) Namespace() string { return "supabase" }

func (*Supabase) Tools() []gateway.Tool {
	return []gateway.Tool{
		{
			ID:      "supabase.analytics",
			Name:    "Query product metrics",
			Summary: "Returns funnel and activation metrics.",
			Args:    map[string]string{"metric": "conversion_rate|activation_rate", "range": "7d|30d"},
		},
		{
			ID:      "supabase.sync_subscription",
			Name:    "Retry subscription sync",
			Summary: "Retries syncing Stripe subscription data.",
			Args:    map[string]string{"retries": "Number of retries"},
		},
	}
}

func (*Supabase) Execute(_ context.Context, _ domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	switch toolID {
	case "supabase.analytics":
		series := make([]map[string]any, 0, 7)
		for day := range 7 {
			v := 7 + rand.Float64()*2 - float64(day)*0.1
			series = append(series, map[string]any{"day": day, "value": math.Round(v*100) / 100})
		}
		return &domain.ToolResult{
			Result: map[string]any{
				"metric": argString(args, "metric", "conversion_rate"),
				"range":  argString(args, "range", "7d"),
				"series": series,
			},
			Metadata: templateHint("timeseries"),
		}, nil

	case "supabase.sync_subscription":
		return &domain.ToolResult{
			Result: map[string]any{
				"status":  "ok",
				"retries": argInt(args, "retries", 1),
				"message": "Subscription sync retried with exponential backoff.",
			},
			Metadata: templateHint("status"),
		}, nil
	}

	return nil, unknownTool("supabase", toolID)
}
