package domain

import (
	"context"
	"time"
)

// DashboardContext is the layout context regenerated on every chat turn.
const DashboardContext = "main_dashboard"

type UIStat struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type UIHero struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Stats    []UIStat `json:"stats,omitempty"`
}

type UICard struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Value       float64       `json:"value,omitempty"`
	Unit        string        `json:"unit,omitempty"`
	Delta       float64       `json:"delta,omitempty"`
	Severity    Severity      `json:"severity,omitempty"`
	Trend       []MetricPoint `json:"trend,omitempty"`
	Steps       []string      `json:"steps,omitempty"`
}

type UISection struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Title string   `json:"title"`
	Cards []UICard `json:"cards"`
}

type UILayout struct {
	Hero     UIHero      `json:"hero"`
	Sections []UISection `json:"sections"`
}

// UISchema is a versioned layout snapshot. Versions grow by one per
// (workspace, context) regeneration.
type UISchema struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Context     string    `json:"context"`
	Version     int       `json:"version"`
	Layout      UILayout  `json:"layout"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UISchemaRepository interface {
	Save(ctx context.Context, s *UISchema) error
	// Latest returns the highest version for the context, or ErrNotFound.
	Latest(ctx context.Context, workspaceID, context string) (*UISchema, error)
}
