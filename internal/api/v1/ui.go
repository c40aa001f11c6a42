package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/domain"
)

type UIContextInput struct {
	WorkspaceInput
	Context string `path:"context" minLength:"1" maxLength:"64" doc:"Layout context, e.g. main_dashboard"`
}

func RegisterUIRoutes(api huma.API, ui Experience) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ui-schema",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/ui/{context}",
		Summary:     "Get the latest layout for a context",
		Tags:        []string{"UI"},
	}, func(ctx context.Context, input *UIContextInput) (*DataOutput[*domain.UISchema], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		schema, err := ui.Latest(ctx, input.WorkspaceID, input.Context)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("schema not found")
			}
			return nil, huma.Error500InternalServerError("failed to get schema", err)
		}
		return respond(schema), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-ui-schema",
		Method:      http.MethodPost,
		Path:        "/workspaces/{workspaceId}/ui/{context}/regenerate",
		Summary:     "Build and store the next layout version",
		Tags:        []string{"UI"},
	}, func(ctx context.Context, input *UIContextInput) (*DataOutput[*domain.UISchema], error) {
		if err := checkWrite(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		schema, err := ui.Regenerate(ctx, input.WorkspaceID, input.Context)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to regenerate schema", err)
		}
		return respond(schema), nil
	})
}
