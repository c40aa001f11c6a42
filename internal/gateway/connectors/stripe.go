package connectors

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

const maxFailedInvoices = 50

// Stripe returns synthetic billing data.
type Stripe struct{}

func NewStripe() *Stripe { return &Stripe{} }

func (*Stripe) ID() string        { return "stripe" }
func (*Stripe) Name() string      { return "Stripe" }
func (*Stripe) Namespace() string { return "stripe" }

func (*Stripe) Tools() []gateway.Tool {
	return []gateway.Tool{
		{
			ID:      "stripe.metrics",
			Name:    "Fetch revenue metrics",
			Summary: "Returns ARR/MRR summaries with growth rates.",
			Args:    map[string]string{"range": "Supported values: 7d, 30d, 90d"},
		},
		{
			ID:      "stripe.list_failed",
			Name:    "List failed payments",
			Summary: "Lists failed invoices for manual review.",
			Args:    map[string]string{"limit": "Max number of invoices"},
		},
	}
}

func (*Stripe) Execute(_ context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	switch toolID {
	case "stripe.metrics":
		return &domain.ToolResult{
			Result: map[string]any{
				"workspaceId": cc.WorkspaceID,
				"range":       argString(args, "range", "7d"),
				"arr":         120_000 + rand.IntN(4001),
				"mrr":         10_000 + rand.IntN(601),
				"currency":    "USD",
				"growthRate":  math.Round(rand.Float64()*500) / 100,
			},
			Metadata: templateHint("kpi"),
		}, nil

	case "stripe.list_failed":
		limit := min(max(argInt(args, "limit", 3), 0), maxFailedInvoices)
		now := time.Now().UnixMilli()
		invoices := make([]map[string]any, 0, limit)
		for i := range limit {
			reason := "insufficient_funds"
			if i%2 == 1 {
				reason = "expired_card"
			}
			invoices = append(invoices, map[string]any{
				"id":            fmt.Sprintf("in_%d%d", i, now),
				"customer":      fmt.Sprintf("cust_%d", i),
				"amount":        1200 + i*130,
				"currency":      "USD",
				"failureReason": reason,
			})
		}
		return &domain.ToolResult{Result: invoices, Metadata: templateHint("table")}, nil
	}

	return nil, unknownTool("stripe", toolID)
}
