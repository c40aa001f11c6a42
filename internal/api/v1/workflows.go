package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/server/middleware"
	"github.com/gosuda/opspilot/internal/workflow"
)

type ListWorkflowsInput struct {
	WorkspaceInput
}

type RunWorkflowBody struct {
	WorkspaceID string `json:"workspaceId,omitempty" default:"ws-demo" doc:"Workspace owning the workflow"`
	ActorID     string `json:"actorId,omitempty" doc:"Actor recorded on the run when the request is anonymous"`
	Reason      string `json:"reason,omitempty" default:"manual" doc:"Why the run was triggered"`
}

type RunWorkflowInput struct {
	WorkflowID string `path:"workflowId" minLength:"1" doc:"Workflow definition ID"`
	Body       *RunWorkflowBody
}

func RegisterWorkflowRoutes(api huma.API, engine WorkflowRunner) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workflows",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/workflows",
		Summary:     "List workflow definitions",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *ListWorkflowsInput) (*DataOutput[[]*domain.WorkflowDefinition], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		defs, err := engine.ListDefinitions(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list workflows", err)
		}
		return respond(nonNil(defs)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workflow-runs",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/workflows/runs",
		Summary:     "List workflow runs",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *ListWorkflowsInput) (*DataOutput[[]*domain.WorkflowRun], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		runs, err := engine.ListRuns(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list runs", err)
		}
		return respond(nonNil(runs)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-workflow",
		Method:      http.MethodPost,
		Path:        "/workflows/{workflowId}/run",
		Summary:     "Run a workflow now",
		Tags:        []string{"Workflows"},
	}, func(ctx context.Context, input *RunWorkflowInput) (*DataOutput[*domain.WorkflowRun], error) {
		body := bodyOf(input.Body)
		ws := orDefault(body.WorkspaceID)
		reason := body.Reason
		if reason == "" {
			reason = "manual"
		}
		if err := checkWrite(ctx, ws); err != nil {
			return nil, err
		}

		fallback := body.ActorID
		if fallback == "" {
			fallback = "api"
		}

		run, err := engine.RunWorkflow(ctx, input.WorkflowID, workflow.RunContext{
			WorkspaceID: ws,
			ActorID:     middleware.ActorID(ctx, fallback),
			Reason:      reason,
		})
		if err != nil {
			if errors.Is(err, workflow.ErrWorkflowNotFound) {
				return nil, huma.Error404NotFound("workflow not found")
			}
			return nil, huma.Error500InternalServerError("failed to run workflow", err)
		}
		return respond(run), nil
	})
}
