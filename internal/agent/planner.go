package agent

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/domain"
)

const (
	planMessagePreview = 80
	minReasonedSteps   = 2
	maxReasonedSteps   = 4
)

// Reasoner composes a plan with an external reasoning service.
type Reasoner interface {
	ComposePlan(ctx context.Context, session *domain.Session, agent *domain.Agent, message string) (*domain.Plan, error)
}

// PlanComposer builds the per-turn plan. Without a reasoner, or whenever the
// reasoner fails or returns something unusable, it produces the fixed
// three-step plan.
type PlanComposer struct {
	reasoner Reasoner
}

// NewPlanComposer accepts a nil reasoner.
func NewPlanComposer(reasoner Reasoner) *PlanComposer {
	return &PlanComposer{reasoner: reasoner}
}

func (p *PlanComposer) CreatePlan(ctx context.Context, session *domain.Session, agent *domain.Agent, message string) *domain.Plan {
	if p.reasoner != nil {
		plan, err := p.reasoner.ComposePlan(ctx, session, agent, message)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("session_id", session.ID).Msg("agent.PlanComposer.CreatePlan: reasoning failed, using fallback")
		case !acceptablePlan(plan):
			log.Warn().Str("session_id", session.ID).Msg("agent.PlanComposer.CreatePlan: reasoning plan rejected, using fallback")
		default:
			return plan
		}
	}

	return FallbackPlan(session.Title, message)
}

// FallbackPlan is a pure function of the session title and message.
func FallbackPlan(sessionTitle, message string) *domain.Plan {
	preview := []rune(message)
	if len(preview) > planMessagePreview {
		preview = preview[:planMessagePreview]
	}

	return &domain.Plan{
		Goal: "Help " + sessionTitle,
		Steps: []domain.PlanStep{
			{
				ID:          "understand",
				Title:       "Understand request",
				Description: `Clarify intent for "` + string(preview) + `".`,
			},
			{
				ID:          "gather-signals",
				Title:       "Gather key signals",
				Description: "Load KPIs, anomalies, and workflow health.",
				DependsOn:   []string{"understand"},
			},
			{
				ID:          "synthesize",
				Title:       "Synthesize response & UI",
				Description: "Summarize insights and emit updated UI schema.",
				DependsOn:   []string{"gather-signals"},
			},
		},
	}
}

func acceptablePlan(plan *domain.Plan) bool {
	if plan == nil || plan.Goal == "" {
		return false
	}
	if len(plan.Steps) < minReasonedSteps || len(plan.Steps) > maxReasonedSteps {
		return false
	}

	seen := make(map[string]struct{}, len(plan.Steps))
	for _, s := range plan.Steps {
		if s.ID == "" {
			return false
		}
		if _, dup := seen[s.ID]; dup {
			return false
		}
		seen[s.ID] = struct{}{}
	}
	return true
}
