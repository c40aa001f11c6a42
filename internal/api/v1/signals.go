package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/domain"
)

type ListToolsInput struct {
	WorkspaceInput
}

type SignalsInput struct {
	WorkspaceInput
}

type OverviewInput struct {
	WorkspaceInput
}

// Overview is the first-paint bundle for the console.
type Overview struct {
	Sessions  []*domain.Session      `json:"sessions"`
	Agents    []*domain.Agent        `json:"agents"`
	Metrics   []*domain.MetricSeries `json:"metrics"`
	Anomalies []*domain.Anomaly      `json:"anomalies"`
	UISchema  *domain.UISchema       `json:"uiSchema"`
}

func RegisterSignalRoutes(api huma.API, tools ToolCatalog, signals SignalReader) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tools",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/tools",
		Summary:     "List connector tools",
		Tags:        []string{"Tools"},
	}, func(ctx context.Context, input *ListToolsInput) (*DataOutput[[]domain.ToolDescription], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}
		return respond(nonNil(tools.ListTools())), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-metrics",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/signals/metrics",
		Summary:     "List metric series",
		Tags:        []string{"Signals"},
	}, func(ctx context.Context, input *SignalsInput) (*DataOutput[[]*domain.MetricSeries], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		metrics, err := signals.Metrics(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list metrics", err)
		}
		return respond(nonNil(metrics)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-anomalies",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/signals/anomalies",
		Summary:     "List open anomalies in detection order",
		Tags:        []string{"Signals"},
	}, func(ctx context.Context, input *SignalsInput) (*DataOutput[[]*domain.Anomaly], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		anomalies, err := signals.Anomalies(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list anomalies", err)
		}
		return respond(nonNil(anomalies)), nil
	})
}

func RegisterOverviewRoutes(api huma.API, store DataStore, signals SignalReader, ui Experience) {
	huma.Register(api, huma.Operation{
		OperationID: "get-overview",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/overview",
		Summary:     "Sessions, agents, signals and the current dashboard in one call",
		Tags:        []string{"Overview"},
	}, func(ctx context.Context, input *OverviewInput) (*DataOutput[Overview], error) {
		ws := input.WorkspaceID
		if err := checkWorkspace(ctx, ws); err != nil {
			return nil, err
		}

		sessions, err := store.Sessions().ListByWorkspace(ctx, ws)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sessions", err)
		}
		agents, err := store.Agents().ListByWorkspace(ctx, ws)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list agents", err)
		}
		metrics, err := signals.Metrics(ctx, ws)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list metrics", err)
		}
		anomalies, err := signals.Anomalies(ctx, ws)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list anomalies", err)
		}
		schema, err := ui.Latest(ctx, ws, domain.DashboardContext)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error500InternalServerError("failed to get dashboard", err)
		}

		return respond(Overview{
			Sessions:  nonNil(sessions),
			Agents:    nonNil(agents),
			Metrics:   nonNil(metrics),
			Anomalies: nonNil(anomalies),
			UISchema:  schema,
		}), nil
	})
}
